// Package changes provides domain types for classifying commit history.
package changes

import (
	"sort"
	"strings"
	"time"
)

// Commit is an immutable record of one commit as read from version control.
type Commit struct {
	hash        string
	message     string
	author      string
	authorEmail string
	date        time.Time
}

// CommitOption is a functional option for creating commits.
type CommitOption func(*Commit)

// WithAuthor sets the commit author.
func WithAuthor(name, email string) CommitOption {
	return func(c *Commit) {
		c.author = name
		c.authorEmail = email
	}
}

// WithDate sets the author date.
func WithDate(date time.Time) CommitOption {
	return func(c *Commit) {
		c.date = date
	}
}

// NewCommit creates a new Commit value.
func NewCommit(hash, message string, opts ...CommitOption) Commit {
	c := Commit{
		hash:    hash,
		message: message,
		date:    time.Now(),
	}

	for _, opt := range opts {
		opt(&c)
	}

	return c
}

// Hash returns the commit hash.
func (c Commit) Hash() string {
	return c.hash
}

// ShortHash returns the short (7 character) commit hash.
func (c Commit) ShortHash() string {
	if len(c.hash) > 7 {
		return c.hash[:7]
	}
	return c.hash
}

// Message returns the full commit message.
func (c Commit) Message() string {
	return c.message
}

// Subject returns the first line of the commit message.
func (c Commit) Subject() string {
	msg := strings.TrimSpace(c.message)
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return strings.TrimSpace(msg[:i])
	}
	return msg
}

// Author returns the commit author name.
func (c Commit) Author() string {
	return c.author
}

// AuthorEmail returns the commit author email.
func (c Commit) AuthorEmail() string {
	return c.authorEmail
}

// Date returns the author date.
func (c Commit) Date() time.Time {
	return c.date
}

// Contributors returns the unique author names of the given commits, sorted,
// excluding bot accounts.
func Contributors(commits []Commit) []string {
	seen := make(map[string]struct{}, len(commits))
	names := make([]string, 0, len(commits))

	for _, c := range commits {
		name := strings.TrimSpace(c.author)
		if name == "" || strings.Contains(name, "[bot]") || strings.Contains(c.authorEmail, "[bot]") {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}
