// Package story parses line-oriented story scripts into an ordered
// dialogue sequence and indexes the game-data tree they live in.
package story

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DialogueKind classifies a parsed Dialogue.
type DialogueKind int

const (
	KindDialogue DialogueKind = iota
	KindNarration
	KindSubtitle
)

// Dialogue is one line of an episode's ordered script.
type Dialogue struct {
	ID          string
	SpeakerID   string
	SpeakerName string
	Text        string
	Line        int
	Kind        DialogueKind
}

// Command is a recognized or preserved-but-uninterpreted scene/audio
// directive, kept verbatim for diagnostics.
type Command struct {
	Name   string
	Params map[string]string
	Tail   string
	Line   int
}

// LineParse is the sum type a per-line parse yields, replacing exceptions
// for control flow: exactly one of Dialogue, Narration, Cmd is non-nil, or
// Invalid names why the line could not be classified.
type LineParse struct {
	Dialogue *Dialogue
	Narration *Dialogue
	Cmd       *Command
	Invalid   string
}

var (
	dialogueLineRe = regexp.MustCompile(`^\[name="([^"]*)"\]\s*(.*)$`)
	commandLineRe  = regexp.MustCompile(`^\[([A-Za-z]+)\((.*)\)\]\s*(.*)$`)
	paramRe        = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*=\s*("([^"]*)"|[^,]+)`)
)

// ParseLine classifies a single raw script line. It never returns an error;
// a line that looks like a command but fails to parse its parameter list
// comes back as Invalid so callers can log and skip it without aborting
// the episode. HEADER is the exception: its title is the tail text, so an
// unparseable HEADER parameter list yields the command with empty Params.
func ParseLine(line string) LineParse {
	line = strings.TrimRight(line, "\r\n")

	if m := dialogueLineRe.FindStringSubmatch(line); m != nil {
		return LineParse{Dialogue: &Dialogue{SpeakerName: m[1], Text: strings.TrimSpace(m[2]), Kind: KindDialogue}}
	}

	if strings.HasPrefix(strings.TrimSpace(line), "[") {
		if m := commandLineRe.FindStringSubmatch(line); m != nil {
			params, err := parseParams(m[2])
			if err != nil {
				if !strings.EqualFold(m[1], "HEADER") {
					return LineParse{Invalid: err.Error()}
				}
				params = map[string]string{}
			}
			return LineParse{Cmd: &Command{Name: m[1], Params: params, Tail: strings.TrimSpace(m[3])}}
		}
		return LineParse{Invalid: fmt.Sprintf("malformed command line: %q", line)}
	}

	if strings.TrimSpace(line) == "" {
		return LineParse{Invalid: "blank line"}
	}

	return LineParse{Narration: &Dialogue{Text: strings.TrimSpace(line), Kind: KindNarration}}
}

func parseParams(raw string) (map[string]string, error) {
	params := make(map[string]string)
	matches := paramRe.FindAllStringSubmatch(raw, -1)
	if raw != "" && len(matches) == 0 {
		return nil, fmt.Errorf("malformed parameter list: %q", raw)
	}
	for _, m := range matches {
		key := m[1]
		val := m[2]
		if m[3] != "" || (len(val) >= 2 && val[0] == '"') {
			val = m[3]
		}
		params[key] = strings.TrimSpace(val)
	}
	return params, nil
}

// Episode is a fully parsed story script.
type Episode struct {
	ID         string
	Title      string
	Dialogues  []Dialogue
	Characters map[string]bool
	Commands   []Command
}

// ParseEpisode parses an entire script body into an Episode. The on-stage
// character set updated by Character() commands is tracked but only used
// as a weak hint by callers resolving a bare display name to an id; it is
// not itself part of the dialogue's speaker resolution.
func ParseEpisode(id string, body string) *Episode {
	ep := &Episode{ID: id, Characters: make(map[string]bool)}
	onStage := make(map[string]bool)
	index := 0

	for lineNo, raw := range strings.Split(body, "\n") {
		parsed := ParseLine(raw)
		switch {
		case parsed.Cmd != nil:
			parsed.Cmd.Line = lineNo + 1
			ep.Commands = append(ep.Commands, *parsed.Cmd)
			switch strings.ToUpper(parsed.Cmd.Name) {
			case "HEADER":
				ep.Title = parsed.Cmd.Tail
			case "CHARACTER":
				if name, ok := parsed.Cmd.Params["name"]; ok {
					onStage[name] = true
					ep.Characters[name] = true
				}
			}
		case parsed.Dialogue != nil:
			d := *parsed.Dialogue
			d.ID = dialogueID(id, index)
			d.Line = lineNo + 1
			ep.Dialogues = append(ep.Dialogues, d)
			index++
		case parsed.Narration != nil:
			d := *parsed.Narration
			d.ID = dialogueID(id, index)
			d.Line = lineNo + 1
			ep.Dialogues = append(ep.Dialogues, d)
			index++
		default:
			// Invalid: malformed command or blank line. Skipped with no
			// effect on dialogue indexing, per the parser's "never abort"
			// contract.
		}
	}
	return ep
}

func dialogueID(episodeID string, index int) string {
	return fmt.Sprintf("%s_%s", episodeID, zeroPad(index, 4))
}

func zeroPad(n, width int) string {
	s := strconv.Itoa(n)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
