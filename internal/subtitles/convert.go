package subtitles

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"hardsub/internal/recognition"
	"hardsub/internal/services"
	"hardsub/internal/textutil"
)

const stageName = "convert"

// ErrNoSpeech reports a transcript that produced no cues. It is wrapped with
// services.ErrConversion.
var ErrNoSpeech = errors.New("no speech recognized")

// Cue is one numbered subtitle entry.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// ConvertOptions bounds cue length. MergeGap of zero disables merging.
type ConvertOptions struct {
	MaxDuration time.Duration
	MaxChars    int
	MergeGap    time.Duration
}

type segment struct {
	start int64
	end   int64
	text  string
	words []word
}

type word struct {
	start int64
	end   int64
	text  string
}

// Convert produces contiguous, 1-based cues from a transcript. Times are
// rounded to the millisecond; every cue has a positive duration.
func Convert(t recognition.Transcript, opts ConvertOptions) ([]Cue, error) {
	if opts.MaxDuration < time.Millisecond || opts.MaxChars <= 0 {
		return nil, services.Wrap(services.ErrConversion, stageName, "convert transcript", "cue limits must be positive", nil)
	}
	if t.Unit <= 0 {
		return nil, services.Wrap(services.ErrConversion, stageName, "convert transcript", "transcript time unit must be positive", nil)
	}

	segments := make([]segment, 0, len(t.Segments))
	for i, s := range t.Segments {
		start, end := toMillis(s.Start, t.Unit), toMillis(s.End, t.Unit)
		if start < 0 || end <= start {
			return nil, services.Wrap(
				services.ErrConversion,
				stageName,
				"convert transcript",
				fmt.Sprintf("segment %d has invalid interval %dms-%dms", i, start, end),
				nil,
			)
		}
		text := textutil.Normalize(s.Text)
		if text == "" {
			continue
		}
		seg := segment{start: start, end: end, text: text}
		for _, w := range s.Words {
			wt := textutil.Normalize(w.Text)
			if wt == "" {
				continue
			}
			seg.words = append(seg.words, word{start: toMillis(w.Start, t.Unit), end: toMillis(w.End, t.Unit), text: wt})
		}
		segments = append(segments, seg)
	}
	slices.SortStableFunc(segments, func(a, b segment) int { return cmp.Compare(a.start, b.start) })

	maxMS := opts.MaxDuration.Milliseconds()
	cues := make([]Cue, 0, len(segments))
	for _, seg := range segments {
		cues = append(cues, split(seg, maxMS, opts.MaxChars)...)
	}
	if opts.MergeGap > 0 {
		cues = merge(cues, opts)
	}
	if len(cues) == 0 {
		return nil, services.Wrap(services.ErrConversion, stageName, "convert transcript", "transcript contains no speech", ErrNoSpeech)
	}
	for i := range cues {
		cues[i].Index = i + 1
	}
	return cues, nil
}

func toMillis(value int64, unit time.Duration) int64 {
	return (time.Duration(value) * unit).Round(time.Millisecond).Milliseconds()
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// split cuts one segment into n pieces whose intervals partition it exactly.
// Every piece gets text of its own, so no cue is longer than maxMS, unless the
// text has fewer non-space runes than pieces. Only then are the trailing
// empty pieces folded into the last cue that has text.
func split(seg segment, maxMS int64, maxChars int) []Cue {
	runes := []rune(seg.text)
	dur := seg.end - seg.start
	n := max(ceilDiv(dur, maxMS), ceilDiv(int64(len(runes)), int64(maxChars)), 1)
	n = min(n, dur)
	if n <= 1 {
		return []Cue{{Start: millis(seg.start), End: millis(seg.end), Text: seg.text}}
	}

	pieces := int(n)
	at := func(i int) int64 { return seg.start + dur*int64(i)/n }
	cuts, ok := wordCuts(seg, runes, pieces, at)
	if !ok {
		cuts = boundaryCuts(runes, pieces)
	}

	out := make([]Cue, 0, pieces)
	for i := 0; i < pieces; i++ {
		start, end := at(i), at(i+1)
		text := strings.TrimSpace(string(runes[cuts[i]:cuts[i+1]]))
		if text == "" {
			out[len(out)-1].End = millis(end)
			continue
		}
		out = append(out, Cue{Start: millis(start), End: millis(end), Text: text})
	}
	return out
}

// wordCuts places piece boundaries at the first word whose midpoint falls in
// each piece. It reports false when the words cannot be located in the text
// or when some piece would receive no word.
func wordCuts(seg segment, runes []rune, n int, at func(int) int64) ([]int, bool) {
	if len(seg.words) == 0 {
		return nil, false
	}
	offsets := make([]int, len(seg.words))
	cursor := 0
	for j, w := range seg.words {
		wr := []rune(w.text)
		idx := indexRunes(runes[cursor:], wr)
		if idx < 0 {
			return nil, false
		}
		offsets[j] = cursor + idx
		cursor += idx + len(wr)
	}

	pieceOf := func(ms int64) int {
		for k := n - 1; k > 0; k-- {
			if ms >= at(k) {
				return k
			}
		}
		return 0
	}

	cuts := make([]int, n+1)
	cuts[n] = len(runes)
	for k := 1; k < n; k++ {
		cuts[k] = len(runes)
		for j, w := range seg.words {
			if pieceOf((w.start+w.end)/2) >= k {
				cuts[k] = offsets[j]
				break
			}
		}
		if cuts[k] <= cuts[k-1] || cuts[k] >= len(runes) {
			return nil, false
		}
	}
	return cuts, true
}

// boundaryCuts picks n-1 strictly increasing cut points, each the candidate
// nearest its proportional rune offset, preferring the earlier candidate on
// ties. Candidates are the starts of text after a break; when there are too
// few, any non-space rune may start a piece.
func boundaryCuts(runes []rune, n int) []int {
	cands := cutCandidates(runes, true)
	if len(cands) < n-1 {
		cands = cutCandidates(runes, false)
	}
	cuts := make([]int, n+1)
	cuts[n] = len(runes)
	if len(cands) < n-1 {
		for i := 1; i < n; i++ {
			cuts[i] = len(runes)
			if i <= len(cands) {
				cuts[i] = cands[i-1]
			}
		}
		return cuts
	}

	next := 0
	for i := 1; i < n; i++ {
		target := (2*len(runes)*i + n) / (2 * n)
		// Leave one candidate for each remaining cut.
		last := len(cands) - (n - i)
		best := next
		for k := next + 1; k <= last; k++ {
			if abs(cands[k]-target) < abs(cands[best]-target) {
				best = k
			}
		}
		cuts[i] = cands[best]
		next = best + 1
	}
	return cuts
}

// cutCandidates lists rune offsets that may start a piece. Each points at a
// non-space rune, so pieces between distinct candidates are never blank.
// With atBreaks set only offsets after a text break qualify.
func cutCandidates(runes []rune, atBreaks bool) []int {
	var cands []int
	for p := 1; p < len(runes); p++ {
		if unicode.IsSpace(runes[p]) {
			continue
		}
		if atBreaks && !textutil.IsBreak(runes[p-1], runes[p]) {
			continue
		}
		cands = append(cands, p)
	}
	return cands
}

func merge(cues []Cue, opts ConvertOptions) []Cue {
	out := make([]Cue, 0, len(cues))
	for _, c := range cues {
		if len(out) > 0 {
			prev := &out[len(out)-1]
			text := textutil.Join(prev.Text, c.Text)
			end := max(prev.End, c.End)
			if c.Start-prev.End < opts.MergeGap &&
				end-prev.Start <= opts.MaxDuration &&
				utf8.RuneCountInString(text) <= opts.MaxChars {
				prev.End = end
				prev.Text = text
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if slices.Equal(haystack[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
