// Package directory holds the customer directory: a YAML catalog of
// known customers used to resolve senders and invoice recipients.
package directory

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

func isValidURL(rawURL string) bool {
	if rawURL == "" {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func sanitizeCustomer(c *Customer) {
	if !isValidURL(c.Website) {
		c.Website = ""
	}
}

type Customer struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Email   string   `yaml:"email"`
	Company string   `yaml:"company,omitempty"`
	Website string   `yaml:"website,omitempty"`
	Notes   string   `yaml:"notes,omitempty"`
	Tags    []string `yaml:"tags,omitempty"`
}

type Directory struct {
	Customers []Customer `yaml:"customers"`
}

func LoadFromFile(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read customer file: %w", err)
	}

	var dir Directory
	if err := yaml.Unmarshal(data, &dir); err != nil {
		return nil, fmt.Errorf("failed to parse customer file: %w", err)
	}

	for i := range dir.Customers {
		sanitizeCustomer(&dir.Customers[i])
	}
	return &dir, nil
}

func LoadFromDir(path string) (*Directory, error) {
	dir := &Directory{}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read customer directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".yaml") && !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}

		partial, err := LoadFromFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", entry.Name(), err)
		}

		dir.Customers = append(dir.Customers, partial.Customers...)
	}

	return dir, nil
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, s := range items {
		m[strings.ToLower(s)] = true
	}
	return m
}

// Filter returns customers carrying any of the given tags, skipping the
// excluded IDs and names. Empty tags means all customers.
func (d *Directory) Filter(tags []string, excluded []string) []Customer {
	tagSet, excludedSet := toSet(tags), toSet(excluded)

	var result []Customer
	for _, c := range d.Customers {
		if excludedSet[strings.ToLower(c.ID)] || excludedSet[strings.ToLower(c.Name)] {
			continue
		}
		if len(tagSet) > 0 {
			matched := false
			for _, t := range c.Tags {
				if tagSet[strings.ToLower(t)] {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		result = append(result, c)
	}
	return result
}

func (d *Directory) FindByID(id string) *Customer {
	id = strings.ToLower(id)
	for i := range d.Customers {
		if strings.ToLower(d.Customers[i].ID) == id {
			return &d.Customers[i]
		}
	}
	return nil
}

// FindByEmail finds a customer by their email address
func (d *Directory) FindByEmail(email string) *Customer {
	email = strings.ToLower(email)
	for i := range d.Customers {
		if strings.ToLower(d.Customers[i].Email) == email {
			return &d.Customers[i]
		}
	}
	return nil
}

func (d *Directory) Save(path string) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to serialize customers: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func (d *Directory) Add(customer Customer) error {
	if d.FindByID(customer.ID) != nil {
		return fmt.Errorf("customer with ID %q already exists", customer.ID)
	}
	d.Customers = append(d.Customers, customer)
	return nil
}

// RemoveByID removes a customer by their ID
// Returns the removed customer, or nil if not found
func (d *Directory) RemoveByID(id string) *Customer {
	id = strings.ToLower(id)
	for i := range d.Customers {
		if strings.ToLower(d.Customers[i].ID) == id {
			removed := d.Customers[i]
			d.Customers = append(d.Customers[:i], d.Customers[i+1:]...)
			return &removed
		}
	}
	return nil
}

// SaveWithBackup saves the directory to file, creating a backup first
func (d *Directory) SaveWithBackup(path string) error {
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file for backup: %w", err)
		}
		backupPath := path + ".bak"
		if err := os.WriteFile(backupPath, data, 0644); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}

	return d.Save(path)
}
