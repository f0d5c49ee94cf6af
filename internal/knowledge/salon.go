package knowledge

import (
	"regexp"
	"strings"
)

// AgentPrompt is the subset of a platform agent the salon parser reads.
type AgentPrompt struct {
	Name           string
	BasePrompt     string
	InitialMessage string
	Language       string
}

// SalonInfo is the business profile embedded in an agent's base prompt.
type SalonInfo struct {
	AgentName   string   `json:"agent_name"`
	Greeting    string   `json:"greeting"`
	Language    string   `json:"language"`
	Address     *string  `json:"address"`
	Phone       *string  `json:"phone"`
	Team        []string `json:"team"`
	Personality []string `json:"personality"`
	Rules       []string `json:"rules"`
}

var (
	addressRe = regexp.MustCompile(`(?m)(?:Salon|Address)\s*:\s*(.+?)\s*$`)
	phoneRe   = regexp.MustCompile(`(?m)(?:Téléphone|Telephone|Phone)\s*:\s*(.+?)\s*$`)
	teamRe    = regexp.MustCompile(`(?m)(?:[ÉE]quipe|Team)\s*:\s*(.+?)\s*$`)
	ruleRe    = regexp.MustCompile(`^\s*\d+\.\s*(.+)`)
)

// ParseSalonInfo extracts the salon profile from a, tolerating missing sections.
func ParseSalonInfo(a AgentPrompt) SalonInfo {
	out := SalonInfo{
		AgentName:   a.Name,
		Greeting:    a.InitialMessage,
		Language:    a.Language,
		Team:        []string{},
		Personality: []string{},
		Rules:       []string{},
	}
	if out.AgentName == "" {
		out.AgentName = "Unknown agent"
	}
	if out.Language == "" {
		out.Language = "fr"
	}
	prompt := strings.ReplaceAll(a.BasePrompt, "\r\n", "\n")

	if m := addressRe.FindStringSubmatch(prompt); m != nil {
		addr := strings.TrimSpace(strings.TrimRight(m[1], "- "))
		if addr != "" {
			out.Address = &addr
		}
	}
	if m := phoneRe.FindStringSubmatch(prompt); m != nil {
		phone := m[1]
		out.Phone = &phone
	}
	if m := teamRe.FindStringSubmatch(prompt); m != nil {
		for _, name := range strings.Split(m[1], ",") {
			if name = strings.TrimSpace(name); name != "" {
				out.Team = append(out.Team, name)
			}
		}
	}

	lines := strings.Split(prompt, "\n")
	out.Personality = section(lines, []string{"Personnalité", "Personality"}, func(line string) (string, bool) {
		if rest, ok := strings.CutPrefix(line, "- "); ok {
			return strings.TrimSpace(rest), true
		}
		return "", false
	})
	out.Rules = section(lines, []string{"Règles", "Rules"}, func(line string) (string, bool) {
		if m := ruleRe.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1]), true
		}
		return "", false
	})
	return out
}

// section collects items after the first line containing one of markers,
// stopping at the next markdown heading.
func section(lines, markers []string, item func(string) (string, bool)) []string {
	out := []string{}
	in := false
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if !in {
			for _, m := range markers {
				if strings.Contains(raw, m) {
					in = true
					break
				}
			}
			continue
		}
		if strings.HasPrefix(line, "#") {
			break
		}
		if v, ok := item(line); ok && v != "" {
			out = append(out, v)
		}
	}
	return out
}
