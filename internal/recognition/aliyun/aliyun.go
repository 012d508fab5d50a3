// Package aliyun implements recognition.API on Alibaba Cloud Intelligent
// Speech Interaction file transcription (nls-filetrans).
package aliyun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk"
	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"

	"hardsub/internal/recognition"
)

const (
	product    = "nls-filetrans"
	apiVersion = "2018-08-17"
	taskFormat = "4.0"

	actionSubmit = "SubmitTask"
	actionResult = "GetTaskResult"

	statusSuccess         = "SUCCESS"
	statusNoValidFragment = "SUCCESS_WITH_NO_VALID_FRAGMENT"
	statusRunning         = "RUNNING"
	statusQueueing        = "QUEUEING"
	defaultRequestTimeout = 30 * time.Second
	defaultConnectTimeout = 10 * time.Second
	transcriptTimeUnit    = time.Millisecond
)

// Config identifies the account, application, and endpoint.
type Config struct {
	AccessKeyID     string
	AccessKeySecret string
	Region          string
	Endpoint        string
	AppKey          string
	RequestTimeout  time.Duration
}

type doFunc func(req *requests.CommonRequest) ([]byte, error)

// Backend talks to the file transcription API.
type Backend struct {
	cfg Config
	do  doFunc

	mu      sync.Mutex
	results map[string]recognition.Transcript
}

var _ recognition.API = (*Backend)(nil)

// New creates a backend signed with the configured access key.
func New(cfg Config) (*Backend, error) {
	if strings.TrimSpace(cfg.AppKey) == "" {
		return nil, errors.New("aliyun: app key is required")
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("aliyun: endpoint is required")
	}
	client, err := sdk.NewClientWithAccessKey(cfg.Region, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("aliyun: create client: %w", err)
	}
	do := func(req *requests.CommonRequest) ([]byte, error) {
		resp, err := client.ProcessCommonRequest(req)
		if err != nil {
			return nil, err
		}
		return resp.GetHttpContentBytes(), nil
	}
	return newBackend(cfg, do), nil
}

func newBackend(cfg Config, do doFunc) *Backend {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	return &Backend{cfg: cfg, do: do, results: make(map[string]recognition.Transcript)}
}

type taskRequest struct {
	AppKey                    string   `json:"appkey"`
	FileLink                  string   `json:"file_link"`
	Version                   string   `json:"version"`
	EnableWords               bool     `json:"enable_words"`
	PunctuationPrediction     bool     `json:"enable_punctuation_prediction"`
	SemanticSentenceDetection bool     `json:"enable_semantic_sentence_detection"`
	InverseTextNormalization  bool     `json:"enable_inverse_text_normalization"`
	DisfluencyRemoval         bool     `json:"disfluency_removal"`
	MaxSingleSegmentTime      int64    `json:"max_single_segment_time,omitempty"`
	LanguageHints             []string `json:"language_hints,omitempty"`
}

type response struct {
	StatusCode int             `json:"StatusCode"`
	StatusText string          `json:"StatusText"`
	TaskID     string          `json:"TaskId"`
	RequestID  string          `json:"RequestId"`
	Result     json.RawMessage `json:"Result"`
}

type resultPayload struct {
	Sentences []struct {
		BeginTime int64  `json:"BeginTime"`
		EndTime   int64  `json:"EndTime"`
		Text      string `json:"Text"`
		ChannelID int    `json:"ChannelId"`
	} `json:"Sentences"`
	Words []struct {
		BeginTime int64  `json:"BeginTime"`
		EndTime   int64  `json:"EndTime"`
		Word      string `json:"Word"`
		ChannelID int    `json:"ChannelId"`
	} `json:"Words"`
}

// Submit posts a SubmitTask request and returns the task id.
func (b *Backend) Submit(ctx context.Context, req recognition.SubmitRequest) (string, error) {
	task := taskRequest{
		AppKey:                    b.cfg.AppKey,
		FileLink:                  req.AudioURL,
		Version:                   taskFormat,
		EnableWords:               req.Options.EnableWords,
		PunctuationPrediction:     req.Options.PunctuationPrediction,
		SemanticSentenceDetection: req.Options.SemanticSentenceDetection,
		InverseTextNormalization:  req.Options.InverseTextNormalization,
		DisfluencyRemoval:         req.Options.DisfluencyRemoval,
		MaxSingleSegmentTime:      req.Options.MaxSingleSegment.Milliseconds(),
	}
	if hint := strings.TrimSpace(req.Options.LanguageHint); hint != "" {
		task.LanguageHints = []string{hint}
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("aliyun: encode task: %w", err)
	}

	request := b.newRequest(actionSubmit, requests.POST)
	request.FormParams["Task"] = string(payload)
	resp, err := b.call(ctx, request)
	if err != nil {
		return "", err
	}
	if resp.StatusText != statusSuccess {
		return "", fmt.Errorf("aliyun: submit rejected: %s (code %d, request %s)", resp.StatusText, resp.StatusCode, resp.RequestID)
	}
	return resp.TaskID, nil
}

// Query fetches the task status. A successful response's result is kept so
// the following Result call does not need another request.
func (b *Backend) Query(ctx context.Context, jobID string) (recognition.QueryResult, error) {
	resp, err := b.getTaskResult(ctx, jobID)
	if err != nil {
		return recognition.QueryResult{}, err
	}
	switch resp.StatusText {
	case statusRunning, statusQueueing:
		return recognition.QueryResult{State: recognition.StateRunning, Detail: resp.StatusText}, nil
	case statusSuccess, statusNoValidFragment:
		transcript, err := parseResult(resp.Result)
		if err != nil {
			return recognition.QueryResult{}, err
		}
		b.mu.Lock()
		b.results[jobID] = transcript
		b.mu.Unlock()
		return recognition.QueryResult{State: recognition.StateSucceeded, Detail: resp.StatusText}, nil
	default:
		return recognition.QueryResult{State: recognition.StateFailed, Detail: resp.StatusText}, nil
	}
}

// Result returns the transcript of a finished task.
func (b *Backend) Result(ctx context.Context, jobID string) (recognition.Transcript, error) {
	b.mu.Lock()
	transcript, ok := b.results[jobID]
	delete(b.results, jobID)
	b.mu.Unlock()
	if ok {
		return transcript, nil
	}

	resp, err := b.getTaskResult(ctx, jobID)
	if err != nil {
		return recognition.Transcript{}, err
	}
	if resp.StatusText != statusSuccess && resp.StatusText != statusNoValidFragment {
		return recognition.Transcript{}, fmt.Errorf("aliyun: task %s is %s", jobID, resp.StatusText)
	}
	return parseResult(resp.Result)
}

func (b *Backend) getTaskResult(ctx context.Context, jobID string) (response, error) {
	request := b.newRequest(actionResult, requests.GET)
	request.QueryParams["TaskId"] = jobID
	return b.call(ctx, request)
}

func (b *Backend) newRequest(action, method string) *requests.CommonRequest {
	request := requests.NewCommonRequest()
	request.Domain = b.cfg.Endpoint
	request.Version = apiVersion
	request.Product = product
	request.ApiName = action
	request.Method = method
	request.Scheme = requests.HTTPS
	request.SetConnectTimeout(defaultConnectTimeout)
	request.SetReadTimeout(b.cfg.RequestTimeout)
	return request
}

// call runs one SDK request. The SDK has no context support, so cancellation
// abandons the in-flight request instead of interrupting it.
func (b *Backend) call(ctx context.Context, request *requests.CommonRequest) (response, error) {
	type outcome struct {
		data []byte
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		data, err := b.do(request)
		done <- outcome{data: data, err: err}
	}()

	var out outcome
	select {
	case <-ctx.Done():
		return response{}, ctx.Err()
	case out = <-done:
	}
	if out.err != nil {
		return response{}, fmt.Errorf("aliyun: %s: %w", request.ApiName, out.err)
	}
	var resp response
	if err := json.Unmarshal(out.data, &resp); err != nil {
		return response{}, fmt.Errorf("aliyun: decode %s response: %w", request.ApiName, err)
	}
	return resp, nil
}

// parseResult converts the service payload into a millisecond transcript.
// Words are reported for the whole file and are attached to the sentence on
// the same channel whose interval contains the word's midpoint.
func parseResult(raw json.RawMessage) (recognition.Transcript, error) {
	transcript := recognition.Transcript{Unit: transcriptTimeUnit}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed == `""` {
		return transcript, nil
	}
	var payload resultPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return recognition.Transcript{}, fmt.Errorf("aliyun: decode result: %w", err)
	}
	transcript.Segments = make([]recognition.Segment, 0, len(payload.Sentences))
	channels := make([]int, 0, len(payload.Sentences))
	for _, s := range payload.Sentences {
		transcript.Segments = append(transcript.Segments, recognition.Segment{Start: s.BeginTime, End: s.EndTime, Text: s.Text})
		channels = append(channels, s.ChannelID)
	}
	for _, w := range payload.Words {
		mid := (w.BeginTime + w.EndTime) / 2
		for i := range transcript.Segments {
			seg := &transcript.Segments[i]
			if channels[i] != w.ChannelID || mid < seg.Start || mid >= seg.End {
				continue
			}
			seg.Words = append(seg.Words, recognition.Word{Start: w.BeginTime, End: w.EndTime, Text: w.Word})
			break
		}
	}
	return transcript, nil
}
