package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kubeclash/clash-server-go/internal/game/effects"
)

type phrase struct {
	pattern *regexp.Regexp
	build   func(n int) effects.Instruction
}

const countExpr = `(\d+|a|an|one|two|three|four|five)`

// phrases is the complete table of card text the engine understands. Text
// outside this table fails the catalog load.
var phrases = []phrase{
	{regexp.MustCompile(`^gain ` + countExpr + ` resources?$`), effects.GainResource},
	{regexp.MustCompile(`^draw ` + countExpr + ` cards?$`), effects.DrawCard},
	{regexp.MustCompile(`^place ` + countExpr + ` incidents? on (?:the )?target$`), func(n int) effects.Instruction {
		return effects.AddIncident(effects.ScopeTarget, n)
	}},
	{regexp.MustCompile(`^steal ` + countExpr + ` resources? from (?:the )?target$`), effects.StealResource},
	{regexp.MustCompile(`^target loses ` + countExpr + ` slo$`), func(n int) effects.Instruction {
		return effects.ReduceSLO(effects.ScopeTarget, n)
	}},
	{regexp.MustCompile(`^remove ` + countExpr + ` incidents?(?: from your board)?$`), func(n int) effects.Instruction {
		return effects.RemoveIncident(effects.ScopeSelf, n)
	}},
	{regexp.MustCompile(`^target removes? ` + countExpr + ` incidents?$`), func(n int) effects.Instruction {
		return effects.RemoveIncident(effects.ScopeTarget, n)
	}},
	{regexp.MustCompile(`^cancel (?:the |that |target )?(?:incoming )?attack$`), func(int) effects.Instruction {
		return effects.Cancel()
	}},
}

var refreshPrefix = regexp.MustCompile(`^each refresh\s*[:,]\s*`)

var sentenceSplit = regexp.MustCompile(`[.;\n]+`)

// CompileText turns authored effect text into instructions. Sentences are
// separated by periods, semicolons or newlines; a leading "Each Refresh:"
// marks the sentence as a passive that fires during Refresh.
func CompileText(text string) ([]effects.Instruction, error) {
	var out []effects.Instruction
	for _, raw := range sentenceSplit.Split(text, -1) {
		sentence := strings.ToLower(strings.Join(strings.Fields(raw), " "))
		if sentence == "" || sentence == "-" || sentence == "—" {
			continue
		}
		refresh := false
		if loc := refreshPrefix.FindStringIndex(sentence); loc != nil {
			refresh = true
			sentence = sentence[loc[1]:]
		}
		instr, err := compileSentence(sentence)
		if err != nil {
			return nil, err
		}
		if refresh {
			instr = instr.OnRefresh()
		}
		out = append(out, instr)
	}
	return out, nil
}

func compileSentence(sentence string) (effects.Instruction, error) {
	for _, p := range phrases {
		m := p.pattern.FindStringSubmatch(sentence)
		if m == nil {
			continue
		}
		n := 0
		if len(m) > 1 {
			var err error
			if n, err = parseCount(m[1]); err != nil {
				return effects.Instruction{}, err
			}
		}
		return p.build(n), nil
	}
	return effects.Instruction{}, fmt.Errorf("unmapped effect text %q", sentence)
}

var countWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
}

func parseCount(s string) (int, error) {
	if n, ok := countWords[s]; ok {
		return n, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return n, nil
}
