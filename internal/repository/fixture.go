package repository

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"franklink-backend/internal/domain"
)

// Fixture is a YAML description of seed data. The SQLite and DynamoDB
// stores can both load it for local development.
type Fixture struct {
	Users    []FixtureUser    `yaml:"users"`
	Requests []FixtureRequest `yaml:"requests"`
	Chats    []FixtureChat    `yaml:"chats"`
	Accounts []FixtureAccount `yaml:"accounts"`
}

type FixtureUser struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	PhoneNumber    string `yaml:"phone_number"`
	University     string `yaml:"university"`
	GraduationYear *int   `yaml:"graduation_year"`
}

type FixtureRequest struct {
	Initiator string `yaml:"initiator"`
	Target    string `yaml:"target"`
	Status    string `yaml:"status"`
}

// StatusOrDefault treats a missing status as a finalized request.
func (r FixtureRequest) StatusOrDefault() string {
	if r.Status == "" {
		return domain.ConnectionStatusGroupCreated
	}
	return r.Status
}

type FixtureChat struct {
	ID          string   `yaml:"id"`
	DisplayName string   `yaml:"display_name"`
	MemberCount int      `yaml:"member_count"`
	Members     []string `yaml:"members"`
}

// Count returns member_count, or the number of listed members when unset.
func (c FixtureChat) Count() int {
	if c.MemberCount == 0 {
		return len(c.Members)
	}
	return c.MemberCount
}

type FixtureAccount struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	UserID   string `yaml:"user_id"`
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}
