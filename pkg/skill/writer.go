package skill

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Skills live on disk as <name>.md with a small frontmatter block over a
// markdown body. The body is the consolidated memory content produced by
// Generate; the frontmatter carries what agents need to decide whether to
// load the skill at all.

// Write persists a generated skill under dir, creating the directory on
// first use. Returns the path of the written file.
func Write(sk *Skill, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create skills directory: %w", err)
	}

	path := filepath.Join(dir, sk.Name+".md")
	if err := os.WriteFile(path, []byte(renderSkill(sk)), 0o600); err != nil {
		return "", fmt.Errorf("write skill: %w", err)
	}
	return path, nil
}

// List returns the parseable skills found in dir. A missing directory is
// an empty result, not an error, and unreadable or malformed files are
// skipped so one bad export cannot hide the rest.
func List(dir string) ([]*Skill, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("scan skills directory: %w", err)
	}

	var skills []*Skill
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		sk, err := parseSkill(string(data))
		if err != nil {
			continue
		}
		sk.Name = strings.TrimSuffix(filepath.Base(path), ".md")
		skills = append(skills, sk)
	}
	return skills, nil
}

// Sync copies the named skill into an agent's skills directory, creating
// the target directory as needed.
func Sync(name, sourceDir, targetDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(sourceDir, name+".md"))
	if err != nil {
		return "", fmt.Errorf("read source skill: %w", err)
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("create target directory: %w", err)
	}

	dstPath := filepath.Join(targetDir, name+".md")
	if err := os.WriteFile(dstPath, data, 0o600); err != nil {
		return "", fmt.Errorf("write target skill: %w", err)
	}
	return dstPath, nil
}

// SkillsDir is where generated skills land by default (~/.engram/skills).
func SkillsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".engram", "skills"), nil
}

// GlobalAgentsSkillsDir returns ~/.agents/skills/.
func GlobalAgentsSkillsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".agents", "skills"), nil
}

// LocalAgentsSkillsDir returns .agents/skills/ relative to the current directory.
func LocalAgentsSkillsDir() string {
	return filepath.Join(".agents", "skills")
}

// GlobalClaudeSkillsDir returns ~/.claude/skills/.
func GlobalClaudeSkillsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".claude", "skills"), nil
}

// LocalClaudeSkillsDir returns .claude/skills/ relative to the current directory.
func LocalClaudeSkillsDir() string {
	return filepath.Join(".claude", "skills")
}

func renderSkill(sk *Skill) string {
	var b strings.Builder

	b.WriteString("---\n")
	writeField(&b, "name", sk.Name)
	writeField(&b, "description", sk.Description)
	writeField(&b, "version", sk.Version)
	if len(sk.Tags) > 0 {
		writeField(&b, "tags", "["+strings.Join(sk.Tags, ", ")+"]")
	}
	writeField(&b, "type", sk.Type)
	if len(sk.Sessions) > 0 {
		writeField(&b, "sessions", "["+strings.Join(sk.Sessions, ", ")+"]")
	}
	if !sk.CreatedAt.IsZero() {
		writeField(&b, "created_at", sk.CreatedAt.Format(time.RFC3339))
	}
	b.WriteString("---\n\n")

	b.WriteString(sk.Content)
	if !strings.HasSuffix(sk.Content, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

func writeField(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", key, value)
}

func parseSkill(content string) (*Skill, error) {
	header, ok := strings.CutPrefix(content, "---\n")
	if !ok {
		return nil, errors.New("missing frontmatter delimiter")
	}
	frontmatter, body, ok := strings.Cut(header, "\n---\n")
	if !ok {
		return nil, errors.New("missing closing frontmatter delimiter")
	}

	sk := &Skill{
		Content: strings.TrimSpace(body),
		Version: "0.1.0",
	}

	for line := range strings.SplitSeq(frontmatter, "\n") {
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "name":
			sk.Name = value
		case "description":
			sk.Description = value
		case "version":
			sk.Version = value
		case "type":
			sk.Type = value
		case "tags":
			sk.Tags = splitList(value)
		case "sessions":
			sk.Sessions = splitList(value)
		case "created_at":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				sk.CreatedAt = t
			}
		}
	}
	return sk, nil
}

func splitList(s string) []string {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
