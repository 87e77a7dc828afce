package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ppiankov/spaneval/internal/model"
)

// ReadOutputsCSV reads raw model outputs from a CSV table with the columns
// essay_id and llm_output
func ReadOutputsCSV(r io.Reader) ([]model.ModelOutput, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	if err := t.require("essay_id", "llm_output"); err != nil {
		return nil, err
	}

	outputs := make([]model.ModelOutput, 0, len(t.records))
	for _, rec := range t.records {
		outputs = append(outputs, model.ModelOutput{
			EssayID: t.get(rec, "essay_id"),
			Output:  t.get(rec, "llm_output"),
		})
	}
	return outputs, nil
}

// batchResultLine is one line of an OpenAI Batch API result file. The
// request's custom_id carries the essay id.
type batchResultLine struct {
	ID       string `json:"id"`
	CustomID string `json:"custom_id"`
	Response *struct {
		StatusCode int                           `json:"status_code"`
		RequestID  string                        `json:"request_id"`
		Body       openai.ChatCompletionResponse `json:"body"`
	} `json:"response"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// BatchFailure is a batch request that produced no usable output
type BatchFailure struct {
	EssayID string
	Reason  string
}

// ReadBatchResults reads an OpenAI Batch API result file. Requests that
// failed or returned no choices are reported as failures rather than
// outputs, so their essays are later counted as unparsable.
func ReadBatchResults(r io.Reader) ([]model.ModelOutput, []BatchFailure, error) {
	var outputs []model.ModelOutput
	var failures []BatchFailure

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item batchResultLine
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, nil, fmt.Errorf("line %d: decode batch result: %w", lineNo, err)
		}

		switch {
		case item.Error != nil:
			failures = append(failures, BatchFailure{EssayID: item.CustomID, Reason: item.Error.Code + ": " + item.Error.Message})
		case item.Response == nil:
			failures = append(failures, BatchFailure{EssayID: item.CustomID, Reason: "no response"})
		case item.Response.StatusCode != 0 && item.Response.StatusCode != 200:
			failures = append(failures, BatchFailure{EssayID: item.CustomID, Reason: fmt.Sprintf("status %d", item.Response.StatusCode)})
		case len(item.Response.Body.Choices) == 0:
			failures = append(failures, BatchFailure{EssayID: item.CustomID, Reason: "no choices"})
		default:
			outputs = append(outputs, model.ModelOutput{
				EssayID: item.CustomID,
				Output:  item.Response.Body.Choices[0].Message.Content,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan batch results: %w", err)
	}
	return outputs, failures, nil
}

// ReadOutputFiles reads model outputs from CSV tables and batch result
// files, choosing the decoder by extension. Batch results may be split over
// several partition files; later files win for repeated essay ids.
func ReadOutputFiles(paths ...string) ([]model.ModelOutput, []BatchFailure, error) {
	var all []model.ModelOutput
	var failures []BatchFailure
	for _, path := range paths {
		outputs, failed, err := readOutputFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		all = append(all, outputs...)
		failures = append(failures, failed...)
	}
	return dedupeOutputs(all), failures, nil
}

func readOutputFile(path string) ([]model.ModelOutput, []BatchFailure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return ReadBatchResults(f)
	default:
		outputs, err := ReadOutputsCSV(f)
		return outputs, nil, err
	}
}

func dedupeOutputs(outputs []model.ModelOutput) []model.ModelOutput {
	index := make(map[string]int, len(outputs))
	var out []model.ModelOutput
	for _, o := range outputs {
		if i, ok := index[o.EssayID]; ok {
			out[i] = o
			continue
		}
		index[o.EssayID] = len(out)
		out = append(out, o)
	}
	return out
}
