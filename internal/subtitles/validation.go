package subtitles

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// cueEndTolerance is how far past the end of the video the last cue may run.
const cueEndTolerance = time.Second

// ValidateSRTContent checks an SRT file for format issues.
// Returns a list of issues found; empty slice means validation passed.
// A positive videoDuration also flags cues running past the end of the video.
func ValidateSRTContent(path string, videoDuration time.Duration) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("read_error: %v", err)}
	}
	content := strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n"))
	if content == "" {
		return []string{"empty_subtitle_file"}
	}

	var issues []string
	var lastStart, lastEnd time.Duration
	expected := 1
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if len(lines) < 3 {
			issues = append(issues, fmt.Sprintf("cue %d: incomplete_block", expected))
			expected++
			continue
		}
		if index, err := strconv.Atoi(strings.TrimSpace(lines[0])); err != nil || index != expected {
			issues = append(issues, fmt.Sprintf("cue %d: bad_index %q", expected, lines[0]))
		}
		start, end, err := parseTiming(lines[1])
		switch {
		case err != nil:
			issues = append(issues, fmt.Sprintf("cue %d: timestamp_parse_error: %v", expected, err))
		case end <= start:
			issues = append(issues, fmt.Sprintf("cue %d: non_positive_duration", expected))
		case start < lastStart:
			issues = append(issues, fmt.Sprintf("cue %d: out_of_order", expected))
		default:
			lastStart = start
			lastEnd = max(lastEnd, end)
		}
		expected++
	}

	if videoDuration > 0 && lastEnd > videoDuration+cueEndTolerance {
		issues = append(issues, fmt.Sprintf("cue_past_end: last=%s video=%s", FormatTimestamp(lastEnd), FormatTimestamp(videoDuration)))
	}
	return issues
}

func parseTiming(line string) (time.Duration, time.Duration, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseTimestamp(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
