// Package content holds the static topics, answers and canned messages the
// bot recites.
package content

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Subtopic is a leaf entry under a topic.
type Subtopic struct {
	ID      string `yaml:"id" json:"id"`
	Label   string `yaml:"label" json:"label"`
	Content string `yaml:"content" json:"content"`
}

// Topic is a main menu entry.
type Topic struct {
	ID          string     `yaml:"id" json:"id"`
	Label       string     `yaml:"label" json:"label"`
	MainContent string     `yaml:"main_content" json:"main_content"`
	Subtopics   []Subtopic `yaml:"subtopics,omitempty" json:"subtopics,omitempty"`
}

// Catalog is every piece of static text the bot knows.
type Catalog struct {
	Greeting         string            `yaml:"greeting" json:"greeting"`
	MainTopicsText   string            `yaml:"main_topics_text" json:"main_topics_text"`
	FallbackResponse string            `yaml:"fallback_response" json:"fallback_response"`
	Topics           []Topic           `yaml:"topics" json:"topics"`
	Responses        map[string]string `yaml:"responses,omitempty" json:"responses,omitempty"`
}

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// MustDefault is Default for callers that cannot recover from a broken binary.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool, len(c.Topics))
	for _, t := range c.Topics {
		if t.ID == "" {
			return fmt.Errorf("catalog: topic %q has no id", t.Label)
		}
		if seen[t.ID] {
			return fmt.Errorf("catalog: duplicate topic %q", t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

// Load returns the embedded catalog with every file matching the overlay
// patterns merged on top, in pattern then path order.
func Load(overlays []string) (*Catalog, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	for _, pattern := range overlays {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("overlay glob %q: %w", pattern, err)
		}
		slices.Sort(matches)
		for _, path := range matches {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read overlay: %w", err)
			}
			var o Catalog
			if err := yaml.Unmarshal(data, &o); err != nil {
				return nil, fmt.Errorf("parse overlay %s: %w", path, err)
			}
			c.Merge(&o)
			slog.Debug("catalog overlay applied", "path", path, "topics", len(o.Topics))
		}
	}
	return c, c.validate()
}

// Merge applies o on top of c. Non-empty texts replace, topics replace by id
// or are appended, responses replace by topic id.
func (c *Catalog) Merge(o *Catalog) {
	if o.Greeting != "" {
		c.Greeting = o.Greeting
	}
	if o.MainTopicsText != "" {
		c.MainTopicsText = o.MainTopicsText
	}
	if o.FallbackResponse != "" {
		c.FallbackResponse = o.FallbackResponse
	}
	for _, t := range o.Topics {
		if i := slices.IndexFunc(c.Topics, func(x Topic) bool { return x.ID == t.ID }); i >= 0 {
			c.Topics[i] = t
			continue
		}
		c.Topics = append(c.Topics, t)
	}
	if len(o.Responses) > 0 && c.Responses == nil {
		c.Responses = make(map[string]string, len(o.Responses))
	}
	for id, text := range o.Responses {
		c.Responses[id] = text
	}
}

// MainTopics returns the topics in menu order.
func (c *Catalog) MainTopics() []Topic {
	return c.Topics
}

// Topic looks a topic up by id.
func (c *Catalog) Topic(id string) (Topic, bool) {
	for _, t := range c.Topics {
		if t.ID == id {
			return t, true
		}
	}
	return Topic{}, false
}

// Subtopic looks a subtopic up under its topic.
func (c *Catalog) Subtopic(topicID, subtopicID string) (Subtopic, bool) {
	t, ok := c.Topic(topicID)
	if !ok {
		return Subtopic{}, false
	}
	for _, s := range t.Subtopics {
		if s.ID == subtopicID {
			return s, true
		}
	}
	return Subtopic{}, false
}

// HasSubtopics reports whether the topic exists and has children.
func (c *Catalog) HasSubtopics(topicID string) bool {
	t, ok := c.Topic(topicID)
	return ok && len(t.Subtopics) > 0
}

// Response returns the free-text answer for a topic. A topic without an
// explicit answer falls back to its main content.
func (c *Catalog) Response(topicID string) (string, bool) {
	if r, ok := c.Responses[topicID]; ok {
		return r, true
	}
	if t, ok := c.Topic(topicID); ok {
		return t.MainContent, true
	}
	return "", false
}
