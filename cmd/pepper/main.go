package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pepper-ops/pepper/internal/config"
	"github.com/pepper-ops/pepper/internal/directory"
	"github.com/pepper-ops/pepper/internal/email"
	"github.com/pepper-ops/pepper/internal/engine"
	"github.com/pepper-ops/pepper/internal/inbox"
	"github.com/pepper-ops/pepper/internal/ops"
	"github.com/pepper-ops/pepper/internal/store"
	"github.com/pepper-ops/pepper/internal/web"
)

var (
	cfgFile       string
	customersFile string
)

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

func resolveCustomersPath() string {
	if customersFile != "" {
		return customersFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "customers.yaml"
	}
	return filepath.Join(home, ".pepper", "customers.yaml")
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "pepper",
		Short: "Pepper - Autonomous operations assistant",
		Long: `Pepper is an operations assistant for small teams: it classifies
incoming email, drafts responses, escalates what needs a human, and
chases overdue invoices.

Run 'pepper serve' to start the local API, or use the subcommands to
work from the terminal.`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pepper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&customersFile, "customers", "", "customer directory file (default is $HOME/.pepper/customers.yaml)")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(monitorCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(activitiesCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(listCustomersCmd())
	rootCmd.AddCommand(addCustomerCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long:  "Create a new configuration file with your email and inbox settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit()
		},
	}
}

func serveCmd() *cobra.Command {
	var port int
	var demo bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local API server",
		Long: `Start a local HTTP server exposing the Pepper JSON API.

The server handles email intake, response drafting, escalation,
invoice reminders, and the activity feed. When inbox monitoring is
configured, it also polls your mailbox for new messages.

The server runs locally on your machine - no data is sent to external
servers except outbound email you configure.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, demo)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from config)")
	cmd.Flags().BoolVar(&demo, "demo", false, "Seed demo data into an empty database")

	return cmd
}

func ingestCmd() *cobra.Command {
	var sender, from, subject, body string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Classify and store a single email",
		Long:  "Run one email through the classifier and store it, printing the analysis.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(sender, from, subject, body)
		},
	}

	cmd.Flags().StringVar(&sender, "sender", "", "Sender display name")
	cmd.Flags().StringVar(&from, "from", "", "Sender email address")
	cmd.Flags().StringVar(&subject, "subject", "", "Email subject")
	cmd.Flags().StringVar(&body, "body", "", "Email body")

	return cmd
}

func monitorCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Monitor the inbox for incoming email",
		Long: `Connect to your mailbox via IMAP and feed new messages through the
classifier. Messages the engine is confident about get a drafted
response; the rest are escalated for review.

Requires inbox configuration in config.yaml with IMAP settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(once)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Check the inbox once and exit")

	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show workload statistics",
		Long:  "Display email, invoice, policy, and activity counts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
}

func activitiesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "activities",
		Short: "Show the recent activity feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivities(limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of recent activities to show")

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo data into the database",
		Long:  "Populate the database with sample emails, invoices, policies, and activities.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed()
		},
	}
}

func listCustomersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "customers",
		Short: "List the customer directory",
		Long:  "Show all customers in the local customer directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListCustomers()
		},
	}
}

func addCustomerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-customer",
		Short: "Add a customer to the directory",
		Long:  "Interactively add a new customer to the local customer directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddCustomer()
		},
	}
}

func loadConfig() *config.Config {
	path := resolveConfigPath()
	if _, err := os.Stat(path); err != nil {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Printf("⚠️  Config exists but failed to load: %v\n", err)
		return config.Default()
	}
	return cfg
}

func openStore(cfg *config.Config) (store.Store, error) {
	path := cfg.Database.Path
	if path == "" {
		path = store.DefaultDBPath()
	}
	return store.OpenSQLite(path)
}

// newService wires the store, engine, and mailer per config. The
// sender stays nil when outbound email isn't configured.
func newService(cfg *config.Config, st store.Store) *ops.Service {
	var sender email.Sender
	if err := cfg.ValidateEmail(); err == nil {
		s, err := email.NewSender(cfg.Email)
		if err != nil {
			fmt.Printf("⚠️  Email sender disabled: %v\n", err)
		} else {
			sender = s
		}
	}

	analyzer := engine.NewAnalyzer(rand.NewSource(time.Now().UnixNano()))

	return ops.NewService(st, analyzer, ops.Options{
		Sender:                    sender,
		BlockEscalateAfterRespond: cfg.Engine.BlockEscalateAfterRespond,
	})
}

func loadCustomers() *directory.Directory {
	path := resolveCustomersPath()
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	dir, err := directory.LoadFromFile(path)
	if err != nil {
		fmt.Printf("⚠️  Customer directory failed to load: %v\n", err)
		return nil
	}
	return dir
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("🌶️  Pepper Configuration Setup")
	fmt.Println("==============================")
	fmt.Println()

	cfg := config.Default()

	fmt.Println("📧 Outbound Email (used for responses and reminders)")
	fmt.Println()

	provider := prompt(reader, "Provider (smtp/resend/sendgrid) [smtp]: ")
	if provider == "" {
		provider = "smtp"
	}
	cfg.Email.Provider = provider
	cfg.Email.From = prompt(reader, "From address: ")
	cfg.Email.FromName = prompt(reader, "From name (optional): ")

	switch provider {
	case "resend":
		cfg.Email.Resend.APIKey = prompt(reader, "Resend API key: ")
	case "sendgrid":
		cfg.Email.SendGrid.APIKey = prompt(reader, "SendGrid API key: ")
	default:
		fmt.Println()
		fmt.Println("SMTP Configuration:")
		fmt.Println("  (For Gmail, see https://support.google.com/accounts/answer/185833 for app password setup)")
		fmt.Println()
		cfg.Email.SMTP.Host = prompt(reader, "  SMTP host [smtp.gmail.com]: ")
		if cfg.Email.SMTP.Host == "" {
			cfg.Email.SMTP.Host = "smtp.gmail.com"
		}
		cfg.Email.SMTP.Port = 465
		cfg.Email.SMTP.UseTLS = true
		cfg.Email.SMTP.Username = prompt(reader, "  Username: ")
		cfg.Email.SMTP.Password = prompt(reader, "  App password: ")
	}

	fmt.Println()
	fmt.Println("📬 Inbox Monitoring (optional)")
	fmt.Println()

	if strings.EqualFold(prompt(reader, "Enable inbox monitoring? (y/N): "), "y") {
		cfg.Inbox.Enabled = true
		cfg.Inbox.Provider = prompt(reader, "  Provider (gmail/outlook/imap) [gmail]: ")
		if cfg.Inbox.Provider == "" {
			cfg.Inbox.Provider = "gmail"
		}
		cfg.Inbox.Email = prompt(reader, "  Email address: ")
		cfg.Inbox.Password = prompt(reader, "  App password: ")
	}

	configPath := resolveConfigPath()
	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Printf("✅ Configuration saved to: %s\n", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit the config file if needed")
	fmt.Println("  2. Run 'pepper serve --demo' to start the API with sample data")
	fmt.Println("  3. Run 'pepper monitor' to watch your inbox")

	return nil
}

func runServe(port int, demo bool) error {
	cfg := loadConfig()
	if port == 0 {
		port = cfg.Server.Port
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	if demo {
		emails, err := st.ListEmails()
		if err != nil {
			return err
		}
		if len(emails) == 0 {
			if err := ops.Seed(st, time.Now()); err != nil {
				return fmt.Errorf("failed to seed demo data: %w", err)
			}
			fmt.Println("🌱 Seeded demo data")
		}
	}

	service := newService(cfg, st)
	server := web.NewServer(port, service, cfg.Server.ActivityLimit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Inbox.Enabled {
		if err := cfg.ValidateInbox(); err != nil {
			fmt.Printf("⚠️  Inbox monitoring disabled: %v\n", err)
		} else {
			monitor := inbox.NewMonitor(cfg.Inbox, service)
			if dir := loadCustomers(); dir != nil {
				monitor.SetDirectory(dir)
			}
			go func() {
				if err := monitor.Connect(ctx); err != nil {
					fmt.Printf("⚠️  Inbox monitoring failed: %v\n", err)
					return
				}
				defer monitor.Disconnect()
				monitor.Run(ctx)
			}()
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	return server.Start()
}

func runIngest(sender, from, subject, body string) error {
	cfg := loadConfig()

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	service := newService(cfg, st)

	e, analysis, err := service.IngestEmail(ops.IngestEmailInput{
		Sender:      sender,
		SenderEmail: from,
		Subject:     subject,
		Body:        body,
	})
	if err != nil {
		return err
	}

	fmt.Printf("📨 %s\n", e.ID)
	fmt.Printf("  Classification: %s\n", analysis.Classification)
	fmt.Printf("  Confidence: %.2f\n", analysis.Confidence)
	fmt.Printf("  Action: %s\n", analysis.SuggestedAction)
	fmt.Printf("  Status: %s\n", e.Status)
	if e.SuggestedResponse != "" {
		fmt.Println()
		fmt.Println("Suggested response:")
		fmt.Println(e.SuggestedResponse)
	}

	return nil
}

func runMonitor(once bool) error {
	cfg := loadConfig()

	if err := cfg.ValidateInbox(); err != nil {
		fmt.Println("📧 Inbox monitoring is not configured.")
		fmt.Println()
		fmt.Println("To enable inbox monitoring, add the following to your config.yaml:")
		fmt.Println()
		fmt.Println("inbox:")
		fmt.Println("  enabled: true")
		fmt.Println("  provider: gmail")
		fmt.Println("  email: your-email@gmail.com")
		fmt.Println("  password: your-app-password  # Use an App Password, not your main password")
		fmt.Println()
		fmt.Println("For Gmail, you'll need to:")
		fmt.Println("  1. Enable 2-Step Verification")
		fmt.Println("  2. Generate an App Password at https://myaccount.google.com/apppasswords")
		fmt.Println("  3. Enable IMAP in Gmail settings")
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	service := newService(cfg, st)
	monitor := inbox.NewMonitor(cfg.Inbox, service)
	if dir := loadCustomers(); dir != nil {
		monitor.SetDirectory(dir)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := monitor.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to inbox: %w", err)
	}
	defer monitor.Disconnect()

	fmt.Printf("📬 Monitoring inbox (last %d days)...\n", cfg.Inbox.LookbackDays)
	fmt.Println()

	if once {
		n, err := monitor.Poll(ctx)
		if err != nil {
			return fmt.Errorf("failed to check inbox: %w", err)
		}
		fmt.Printf("📊 Ingested %d new messages\n", n)
		return nil
	}

	if err := monitor.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func runStats() error {
	cfg := loadConfig()

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	service := newService(cfg, st)

	stats, err := service.Stats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	fmt.Println("📊 Pepper Statistics")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
	fmt.Println("Emails:")
	fmt.Printf("  Pending: %d\n", stats.EmailsPending)
	fmt.Printf("  Responded: %d\n", stats.EmailsResponded)
	fmt.Printf("  Escalated: %d\n", stats.EmailsEscalated)
	fmt.Println()
	fmt.Println("Invoices:")
	fmt.Printf("  Pending: %d\n", stats.InvoicesPending)
	fmt.Printf("  Overdue: %d\n", stats.InvoicesOverdue)
	fmt.Printf("  Outstanding: %s\n", email.FormatAmount(stats.TotalOutstanding))
	fmt.Println()
	fmt.Printf("Active policies: %d\n", stats.PoliciesActive)
	fmt.Printf("Activities today: %d\n", stats.ActivitiesToday)

	return nil
}

func runActivities(limit int) error {
	cfg := loadConfig()

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	service := newService(cfg, st)

	activities, err := service.RecentActivities(limit)
	if err != nil {
		return fmt.Errorf("failed to get activities: %w", err)
	}

	if len(activities) == 0 {
		fmt.Println("No activity yet.")
		return nil
	}

	fmt.Printf("📜 Recent Activity (last %d)\n", limit)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	for _, a := range activities {
		fmt.Printf("%s  %s\n", a.Timestamp.Format("2006-01-02 15:04"), a.Description)
		if a.Details != "" {
			fmt.Printf("    %s\n", a.Details)
		}
	}

	return nil
}

func runSeed() error {
	cfg := loadConfig()

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	if err := ops.Seed(st, time.Now()); err != nil {
		return fmt.Errorf("failed to seed demo data: %w", err)
	}

	fmt.Println("🌱 Demo data loaded")
	return nil
}

func runListCustomers() error {
	path := resolveCustomersPath()
	if _, err := os.Stat(path); err != nil {
		fmt.Println("No customer directory found.")
		fmt.Printf("Run 'pepper add-customer' to create one at %s\n", path)
		return nil
	}

	dir, err := directory.LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("failed to load customers: %w", err)
	}

	fmt.Printf("📋 Customers (%d total)\n", len(dir.Customers))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	for _, c := range dir.Customers {
		fmt.Printf("\n%s [%s]\n", c.Name, c.ID)
		fmt.Printf("  📧 %s\n", c.Email)
		if c.Company != "" {
			fmt.Printf("  🏢 %s\n", c.Company)
		}
		if len(c.Tags) > 0 {
			fmt.Printf("  🏷️  %s\n", strings.Join(c.Tags, ", "))
		}
	}

	return nil
}

func runAddCustomer() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("➕ Add Customer")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	c := directory.Customer{}

	c.Name = prompt(reader, "Customer name: ")
	c.ID = strings.ToLower(strings.ReplaceAll(c.Name, " ", "-"))
	c.Email = prompt(reader, "Billing email: ")
	c.Company = prompt(reader, "Company (optional): ")
	c.Website = prompt(reader, "Website (optional): ")

	path := resolveCustomersPath()

	var dir *directory.Directory
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		dir = &directory.Directory{}
	} else {
		var err error
		dir, err = directory.LoadFromFile(path)
		if err != nil {
			return fmt.Errorf("failed to load customers: %w", err)
		}
	}

	if err := dir.Add(c); err != nil {
		return err
	}

	if err := dir.SaveWithBackup(path); err != nil {
		return fmt.Errorf("failed to save customers: %w", err)
	}

	fmt.Println()
	fmt.Printf("✅ Added %s to the customer directory\n", c.Name)

	return nil
}

func prompt(reader *bufio.Reader, message string) string {
	fmt.Print(message)
	input, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(input)
}
