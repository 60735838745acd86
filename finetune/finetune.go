// Package finetune 上传JSONL训练文件并创建、查询OpenAI微调任务
package finetune

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var ErrNoAPIKey = errors.New("No OpenAI API key provided")

const (
	MethodSupervised = "supervised"
	MethodDPO        = "dpo"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

type JobSpec struct {
	TrainingFile string
	Model        string
	Method       string  // supervised或dpo，为空时为supervised
	NEpochs      int     // 0表示由服务端决定
	LRMultiplier float64 // 0表示由服务端决定
}

type Job struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	Model          string    `json:"model"`
	FineTunedModel string    `json:"fine_tuned_model"`
	TrainingFile   string    `json:"training_file"`
	CreatedAt      int64     `json:"created_at"`
	FinishedAt     int64     `json:"finished_at"`
	Error          *JobError `json:"error,omitempty"`
}

type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// 任务结束（成功、失败或取消）后不再变化
func (j Job) Done() bool {
	switch j.Status {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

type Event struct {
	CreatedAt int64  `json:"created_at"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fine-tuning API returned status code %d: %s", e.Code, e.Body)
}

type Client struct {
	api *openai.Client
	options
}

func New(opts ...Option) (*Client, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	options.baseURL = strings.TrimRight(options.baseURL, "/")

	cfg := openai.DefaultConfig(options.apiKey)
	cfg.BaseURL = options.baseURL
	cfg.HTTPClient = options.httpClient
	return &Client{api: openai.NewClientWithConfig(cfg), options: options}, nil
}

// 输入上下文和JSONL文件路径，输出文件ID和错误
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	f, err := c.api.CreateFile(ctx, openai.FileRequest{
		FileName: filepath.Base(path),
		FilePath: path,
		Purpose:  "fine-tune",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	c.logger.Info("file uploaded", zap.String("file_id", f.ID), zap.String("path", path))
	return f.ID, nil
}

type hyperparameters struct {
	NEpochs                int     `json:"n_epochs,omitempty"`
	LearningRateMultiplier float64 `json:"learning_rate_multiplier,omitempty"`
}

type methodConfig struct {
	Hyperparameters hyperparameters `json:"hyperparameters"`
}

type jobRequest struct {
	TrainingFile string                 `json:"training_file"`
	Model        string                 `json:"model"`
	Method       map[string]interface{} `json:"method"`
}

func (s JobSpec) request() (jobRequest, error) {
	method := s.Method
	if method == "" {
		method = MethodSupervised
	}
	if method != MethodSupervised && method != MethodDPO {
		return jobRequest{}, fmt.Errorf("unknown fine-tuning method %q", s.Method)
	}
	return jobRequest{
		TrainingFile: s.TrainingFile,
		Model:        s.Model,
		Method: map[string]interface{}{
			"type": method,
			method: methodConfig{Hyperparameters: hyperparameters{
				NEpochs:                s.NEpochs,
				LearningRateMultiplier: s.LRMultiplier,
			}},
		},
	}, nil
}

/*
输入上下文和任务参数，输出创建的任务和错误

请求体带method对象，按监督或偏好两种方式设置超参数
*/
func (c *Client) CreateJob(ctx context.Context, spec JobSpec) (Job, error) {
	body, err := spec.request()
	if err != nil {
		return Job{}, err
	}
	b, err := json.Marshal(body)
	if err != nil {
		return Job{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/fine_tuning/jobs", bytes.NewReader(b))
	if err != nil {
		return Job{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Job{}, fmt.Errorf("create fine-tuning job: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Job{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Job{}, &StatusError{Code: resp.StatusCode, Body: string(data)}
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("decode fine-tuning job: %w", err)
	}
	c.logger.Info("fine-tuning job created",
		zap.String("job_id", job.ID),
		zap.String("model", job.Model),
		zap.Any("method", body.Method["type"]))
	return job, nil
}

func (c *Client) Retrieve(ctx context.Context, id string) (Job, error) {
	j, err := c.api.RetrieveFineTuningJob(ctx, id)
	if err != nil {
		return Job{}, fmt.Errorf("retrieve %s: %w", id, err)
	}
	return Job{
		ID:             j.ID,
		Status:         j.Status,
		Model:          j.Model,
		FineTunedModel: j.FineTunedModel,
		TrainingFile:   j.TrainingFile,
		CreatedAt:      j.CreatedAt,
		FinishedAt:     j.FinishedAt,
	}, nil
}

// 最新的limit条事件，limit<=0时由服务端决定
func (c *Client) Events(ctx context.Context, id string, limit int) ([]Event, error) {
	var params []openai.ListFineTuningJobEventsParameter
	if limit > 0 {
		params = append(params, openai.ListFineTuningJobEventsWithLimit(limit))
	}
	list, err := c.api.ListFineTuningJobEvents(ctx, id, params...)
	if err != nil {
		return nil, fmt.Errorf("list events of %s: %w", id, err)
	}
	events := make([]Event, 0, len(list.Data))
	for _, e := range list.Data {
		events = append(events, Event{CreatedAt: e.CreatedAt, Level: e.Level, Message: e.Message})
	}
	return events, nil
}

/*
输入上下文、任务ID、轮询间隔、事件条数和回调，输出最终任务和错误

每次轮询把任务和最新事件交给回调；任务结束或上下文取消时返回，间隔不大于0时按一分钟
*/
func (c *Client) Watch(ctx context.Context, id string, interval time.Duration, limit int, fn func(Job, []Event)) (Job, error) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := c.Retrieve(ctx, id)
		if err != nil {
			return Job{}, err
		}
		events, err := c.Events(ctx, id, limit)
		if err != nil {
			c.logger.Warn("list events failed", zap.String("job_id", id), zap.Error(err))
		}
		if fn != nil {
			fn(job, events)
		}
		if job.Done() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// 上传文件后创建任务，spec中的TrainingFile被覆盖
func (c *Client) Submit(ctx context.Context, path string, spec JobSpec) (Job, error) {
	id, err := c.Upload(ctx, path)
	if err != nil {
		return Job{}, err
	}
	spec.TrainingFile = id
	return c.CreateJob(ctx, spec)
}
