package deltastate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// opSymbols prefix each line of a pretty report
var opSymbols = map[Operation]string{
	OpAdd:     "+",
	OpRemove:  "-",
	OpReplace: "~",
	OpAny:     "*",
}

const colorClose = "\x1b[0m"

// FormatPrettyString is a convenice wrapper that outputs to a string instead of
// an io.Writer
func FormatPrettyString(changes Patches, colorTTY bool) (string, error) {
	buf := &bytes.Buffer{}
	if err := FormatPretty(buf, changes, colorTTY); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatPretty writes a text report to w, one line per patch. if colorTTY is
// true it will add
// red "-" for removals
// green "+" for additions
// blue "~" for replacements
// yellow "*" for whole-subtree changes
func FormatPretty(w io.Writer, changes Patches, colorTTY bool) error {
	var colorMap map[Operation]string

	if colorTTY {
		colorMap = map[Operation]string{
			OpAdd:     "\x1b[32m", // green
			OpRemove:  "\x1b[31m", // red
			OpReplace: "\x1b[34m", // blue
			OpAny:     "\x1b[33m", // yellow
		}
	}

	for _, p := range changes {
		closeStr := ""
		if colorMap != nil {
			closeStr = colorClose
		}

		path := strings.Join(p.Path, PatternSeparator)
		if p.Op == OpRemove {
			if _, err := fmt.Fprintf(w, "%s%s %s%s\n", colorMap[p.Op], opSymbols[p.Op], path, closeStr); err != nil {
				return err
			}
			continue
		}

		data, err := json.Marshal(p.Value)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%s %s: %s%s\n", colorMap[p.Op], opSymbols[p.Op], path, data, closeStr); err != nil {
			return err
		}
	}

	return nil
}

// FormatPrettyStats prints a string of stats info
func FormatPrettyStats(diffStat *Stats) string {
	return formatStats(diffStat, false)
}

// FormatPrettyStatsColor prints a string of stats info with ANSI colors
func FormatPrettyStatsColor(diffStat *Stats) string {
	return formatStats(diffStat, true)
}

func formatStats(ds *Stats, color bool) string {
	var (
		neutralColor, addColor, removeColor, replaceColor, anyColor, closeColor string
	)

	if ds == nil {
		return ""
	}

	if color {
		neutralColor = "\x1b[37m"
		addColor = "\x1b[32m"
		removeColor = "\x1b[31m"
		replaceColor = "\x1b[34m"
		anyColor = "\x1b[33m"
		closeColor = colorClose
	}

	buf := &bytes.Buffer{}

	elsColor := addColor
	change := ds.NodeChange()
	elementsWord := "elements"
	sign := "+"
	if change < 0 {
		elsColor = removeColor
		sign = ""
	} else if change == 0 {
		elsColor = neutralColor
		sign = ""
	}
	if change == 1 || change == -1 {
		elementsWord = "element"
	}

	buf.WriteString(fmt.Sprintf("%s%s%d %s%s%s%s.",
		elsColor, sign, change, closeColor,
		neutralColor, elementsWord, closeColor,
	))

	buf.WriteString(fmt.Sprintf(" %s%d %s.%s", addColor, ds.Adds, plural(ds.Adds, "add", "adds"), closeColor))
	buf.WriteString(fmt.Sprintf(" %s%d %s.%s", removeColor, ds.Removes, plural(ds.Removes, "remove", "removes"), closeColor))
	buf.WriteString(fmt.Sprintf(" %s%d %s.%s", replaceColor, ds.Replaces, plural(ds.Replaces, "replace", "replaces"), closeColor))

	if ds.Aggregates > 0 {
		buf.WriteString(fmt.Sprintf(" %s%d %s.%s", anyColor, ds.Aggregates, plural(ds.Aggregates, "subtree", "subtrees"), closeColor))
	}

	buf.WriteRune('\n')

	return buf.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
