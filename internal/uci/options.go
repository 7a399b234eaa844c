package uci

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/hailam/chesscore/internal/engine"
)

type optionType string

const (
	optSpin   optionType = "spin"
	optCheck  optionType = "check"
	optButton optionType = "button"
)

// option is one entry of the "uci" option list. apply receives the value
// already validated against the type and range.
type option struct {
	name     string
	typ      optionType
	def      string
	min, max int
	apply    func(value string) error
}

func (o option) String() string {
	s := fmt.Sprintf("option name %s type %s", o.name, o.typ)
	switch o.typ {
	case optSpin:
		s += fmt.Sprintf(" default %s min %d max %d", o.def, o.min, o.max)
	case optCheck:
		s += " default " + o.def
	}
	return s
}

func (u *UCI) buildOptions() []option {
	opts := u.engine.Options()
	spin := func(name string, def, minV, maxV int, set func(int) error) option {
		return option{name: name, typ: optSpin, def: strconv.Itoa(def), min: minV, max: maxV,
			apply: func(v string) error {
				n, _ := strconv.Atoi(v)
				return set(n)
			}}
	}

	options := []option{
		spin("Hash", opts.Hash, 1, 1<<17, u.engine.ResizeHash),
		{name: "Clear Hash", typ: optButton, apply: func(string) error {
			u.engine.Clear()
			return nil
		}},
		spin("Threads", opts.Threads, 1, engine.MaxThreads, u.engine.SetThreads),
		spin("MultiPV", opts.MultiPV, 1, 500, func(n int) error {
			u.engine.SetMultiPV(n)
			return nil
		}),
		spin("Min Split Depth", opts.MinSplitDepth, 0, 12, func(n int) error {
			return u.engine.SetSplitParameters(n, u.engine.Options().MaxThreadsPerSplitPoint)
		}),
		spin("Max Threads per Split Point", opts.MaxThreadsPerSplitPoint, 1, 8, func(n int) error {
			return u.engine.SetSplitParameters(u.engine.Options().MinSplitDepth, n)
		}),
		spin("Contempt", opts.Contempt, -100, 100, func(n int) error {
			u.engine.SetContempt(n)
			return nil
		}),
		spin("Move Overhead", int(opts.MoveOverhead.Milliseconds()), 0, 5000, func(n int) error {
			u.engine.SetMoveOverhead(time.Duration(n) * time.Millisecond)
			return nil
		}),
		{name: "Ponder", typ: optCheck, def: "false", apply: func(string) error { return nil }},
		{name: "UCI_Chess960", typ: optCheck, def: "false", apply: func(v string) error {
			u.chess960 = v == "true"
			return nil
		}},
	}

	if u.store != nil {
		options = append(options, option{name: "Clear Analysis", typ: optButton, apply: func(string) error {
			return u.store.Clear()
		}})
	}
	return options
}

// handleSetOption processes "setoption name <name> [value <value>]". Names
// are matched ignoring case.
func (u *UCI) handleSetOption(args []string) error {
	var name, value []string
	target := &name
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			*target = append(*target, arg)
		}
	}
	n, v := strings.Join(name, " "), strings.Join(value, " ")

	o, ok := lo.Find(u.options, func(o option) bool { return strings.EqualFold(o.name, n) })
	if !ok {
		return fmt.Errorf("no such option: %s", n)
	}

	switch o.typ {
	case optSpin:
		x, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: bad value %q: %w", o.name, v, err)
		}
		if x < o.min || x > o.max {
			return fmt.Errorf("%s: %d out of range [%d, %d]", o.name, x, o.min, o.max)
		}
	case optCheck:
		v = strings.ToLower(v)
		if v != "true" && v != "false" {
			return fmt.Errorf("%s: expected true or false, got %q", o.name, v)
		}
	}
	return o.apply(v)
}
