package tryon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stylesync/internal/upstream"
	"stylesync/internal/utils"
)

// ErrValidation 入参校验未通过,未发起网络请求
var ErrValidation = errors.New("inputs failed validation")

// ErrRateLimited 本地限流窗口配额用尽,未发起网络请求
var ErrRateLimited = errors.New("local rate limit exceeded")

const (
	progressTickInterval = 500 * time.Millisecond
	progressCeiling      = 90
	maxGatewayErrorBody  = 4096
)

// Options 编排器的全部依赖,按需覆盖
type Options struct {
	// Endpoint 网关生成接口地址,必填
	Endpoint string
	// HTTPClient 留空时使用 http.DefaultClient
	HTTPClient *http.Client
	// Store 历史与限流状态的持久化,留空退化为进程内
	Store Store
	// HistoryLimit 历史条数上限,默认 10
	HistoryLimit int
	// RateLimit 每窗口允许的请求次数,默认 100
	RateLimit int
	// RateWindow 限流窗口,默认 60s
	RateWindow time.Duration
	// Online 联网探测,留空视为在线
	Online func() bool
	// Compress 提交前压缩超大图片
	Compress bool
	// SaveDir 结果图片落盘目录,留空则驻留内存,URL 为 memory:// 引用
	SaveDir string
	// Now 时钟注入,测试用
	Now func() time.Time
}

// State 编排器状态的一致性快照
type State struct {
	Loading  bool
	Progress int
	Error    string
	Result   *Result
	History  []*Result
}

// Client 试穿请求编排器
// 同一时刻至多一个在途请求,新请求会取代旧请求
type Client struct {
	endpoint     string
	httpClient   *http.Client
	store        Store
	historyLimit int
	limiter      *RateLimiter
	online       func() bool
	compress     bool
	saveDir      string
	now          func() time.Time

	mu         sync.Mutex
	subject    SubjectInput
	garment    *ImageFile
	background BackgroundInput
	seed       string

	loading   bool
	progress  int
	lastError string
	result    *Result
	history   []*Result

	generation uint64
	cancel     context.CancelFunc
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, errors.New("endpoint is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	store := opts.Store
	if store == nil {
		store = &memoryStore{}
	}
	historyLimit := opts.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.SaveDir != "" {
		if err := os.MkdirAll(opts.SaveDir, 0o755); err != nil {
			return nil, fmt.Errorf("create save directory: %w", err)
		}
	}

	client := &Client{
		endpoint:     opts.Endpoint,
		httpClient:   httpClient,
		store:        store,
		historyLimit: historyLimit,
		limiter:      newRateLimiter(store, opts.RateLimit, opts.RateWindow, now),
		online:       opts.Online,
		compress:     opts.Compress,
		saveDir:      opts.SaveDir,
		now:          now,
	}
	client.loadHistory()
	return client, nil
}

// loadHistory 启动时恢复持久化历史,瞬态条目(URL 已被抹除)直接丢弃
func (c *Client) loadHistory() {
	entries, err := c.store.LoadHistory()
	if err != nil {
		logrus.WithError(err).Warn("tryon_history_load_failed")
		return
	}
	for _, entry := range entries {
		if entry.URL == "" || strings.HasPrefix(entry.URL, "memory://") {
			continue
		}
		c.history = append(c.history, resultFromEntry(entry))
		if len(c.history) >= c.historyLimit {
			break
		}
	}
}

// SetSubjectImage 选择模特图片,清空模特描述和上次错误
func (c *Client) SetSubjectImage(file *ImageFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if file == nil {
		c.subject = SubjectInput{}
	} else {
		c.subject = SubjectImage(file)
	}
	c.lastError = ""
}

// SetSubjectPrompt 填写模特描述,清空模特图片和上次错误
func (c *Client) SetSubjectPrompt(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subject = SubjectPrompt(text)
	c.lastError = ""
}

func (c *Client) SetGarment(file *ImageFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.garment = file
	c.lastError = ""
}

func (c *Client) SetBackgroundImage(file *ImageFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if file == nil {
		c.background = BackgroundAuto()
	} else {
		c.background = BackgroundImage(file)
	}
	c.lastError = ""
}

func (c *Client) SetBackgroundPrompt(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.background = BackgroundPrompt(text)
	c.lastError = ""
}

func (c *Client) SetSeed(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seed = strings.TrimSpace(text)
}

// State 当前状态快照,历史为副本
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Loading:  c.loading,
		Progress: c.progress,
		Error:    c.lastError,
		Result:   c.result,
		History:  append([]*Result(nil), c.history...),
	}
}

// CanGenerate 必填项齐备且没有在途请求
func (c *Client) CanGenerate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.loading && !c.subject.IsZero() && c.garment != nil && len(c.garment.Data) > 0
}

// RateRemaining 当前限流窗口剩余配额
func (c *Client) RateRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limiter.Remaining()
}

// Generate 发起一次生成,阻塞直到完成、失败或被取代
// 校验失败和限流拒绝不发起网络请求;取消不算失败,返回 nil
func (c *Client) Generate(ctx context.Context) error {
	online := true
	if c.online != nil {
		online = c.online()
	}

	c.mu.Lock()
	if !c.limiter.Allow() {
		c.lastError = msgRateLimited
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRateLimited, msgRateLimited)
	}

	if msg := validateInputs(c.subject, c.garment, c.background, online); msg != "" {
		c.lastError = msg
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrValidation, msg)
	}

	// 新请求取代旧请求,旧请求的完成回写会被世代号挡掉
	c.generation++
	gen := c.generation
	if c.cancel != nil {
		c.cancel()
	}
	genCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.loading = true
	c.progress = 0
	c.lastError = ""

	subject, garment, background, seed := c.subject, c.garment, c.background, c.seed
	c.mu.Unlock()

	stopTicker := c.startProgressTicker(gen)
	defer stopTicker()

	started := c.now()
	outcome, err := c.post(genCtx, subject, garment, background, seed)
	elapsed := c.now().Sub(started)

	return c.complete(gen, subject, garment, background, outcome, err, elapsed)
}

// startProgressTicker 每 500ms 随机推进进度,封顶 90,真实完成前只涨不落
func (c *Client) startProgressTicker(gen uint64) func() {
	ticker := time.NewTicker(progressTickInterval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				if gen == c.generation && c.loading {
					next := c.progress + 1 + rand.Intn(15)
					if next > progressCeiling {
						next = progressCeiling
					}
					if next > c.progress {
						c.progress = next
					}
				}
				c.mu.Unlock()
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

type postOutcome struct {
	data        []byte
	contentType string
	seed        string
}

func (c *Client) post(ctx context.Context, subject SubjectInput, garment *ImageFile, background BackgroundInput, seed string) (*postOutcome, error) {
	request := upstream.Request{Seed: seed}

	if file, ok := subject.Image(); ok {
		request.AvatarImage = c.filePart(file)
	} else if prompt, ok := subject.Prompt(); ok {
		request.AvatarPrompt = prompt
	}
	request.ClothingImage = c.filePart(garment)
	if file, ok := background.Image(); ok {
		request.BackgroundImage = c.filePart(file)
	} else if prompt, ok := background.Prompt(); ok {
		request.BackgroundPrompt = prompt
	}

	body, contentType, err := request.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.New(gatewayErrorMessage(resp))
	}

	respType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(respType, "image/") {
		return nil, errors.New(msgInvalidResponse)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New(msgEmptyResponse)
	}

	usedSeed := strings.TrimSpace(resp.Header.Get("X-Seed"))
	if usedSeed == "" {
		usedSeed = seed
	}
	return &postOutcome{data: data, contentType: respType, seed: usedSeed}, nil
}

func (c *Client) filePart(file *ImageFile) *upstream.FilePart {
	if c.compress {
		file = compressImage(file)
	}
	return &upstream.FilePart{
		Filename:    file.Name,
		ContentType: file.ContentType,
		Data:        file.Data,
	}
}

// gatewayErrorMessage 优先取网关返回的 {"error": ...},否则按状态码给提示
func gatewayErrorMessage(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxGatewayErrorBody))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	switch resp.StatusCode {
	case http.StatusBadRequest:
		return "Invalid input provided. Please check your images and try again."
	case http.StatusUnauthorized:
		return msgAuthenticationError
	case http.StatusRequestTimeout:
		return msgRequestTimeout
	case http.StatusTooManyRequests:
		return msgRateLimited
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return msgServiceUnavailable
	default:
		return msgGenerationFailed
	}
}

// complete 回写完成状态,被取代的请求直接丢弃结果
func (c *Client) complete(gen uint64, subject SubjectInput, garment *ImageFile, background BackgroundInput, outcome *postOutcome, postErr error, elapsed time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return nil
	}
	// 正常收尾也要释放请求上下文,否则父上下文会一直挂着它
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = nil
	c.loading = false

	if postErr != nil {
		c.progress = 0
		if errors.Is(postErr, context.Canceled) {
			return nil
		}
		if errors.Is(postErr, context.DeadlineExceeded) {
			postErr = errors.New(msgRequestTimeout)
		} else if isTransportError(postErr) {
			postErr = errors.New(msgNetworkError)
		}
		c.lastError = postErr.Error()
		return postErr
	}

	result, err := c.buildResult(subject, garment, background, outcome, elapsed)
	if err != nil {
		c.progress = 0
		c.lastError = err.Error()
		return err
	}

	c.result = result
	c.history = append([]*Result{result}, c.history...)
	for len(c.history) > c.historyLimit {
		evicted := c.history[len(c.history)-1]
		c.history = c.history[:len(c.history)-1]
		evicted.release()
	}
	c.persistHistoryLocked()

	// 进度条走完后归零,与 loading 一起表示空闲
	c.progress = 0
	return nil
}

// isTransportError 连接层面的失败,统一提示检查网络
func isTransportError(err error) bool {
	var urlErr interface{ Timeout() bool }
	if errors.As(err, &urlErr) {
		return true
	}
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "no such host")
}

func (c *Client) buildResult(subject SubjectInput, garment *ImageFile, background BackgroundInput, outcome *postOutcome, elapsed time.Duration) (*Result, error) {
	id := uuid.NewString()
	result := &Result{
		ID:             id,
		Timestamp:      c.now(),
		Model:          subject.Label(),
		Garment:        garment.Name,
		Background:     background.Label(),
		Seed:           outcome.seed,
		ProcessingTime: elapsed,
	}

	if c.saveDir != "" {
		name := id + "." + utils.ExtensionFromMime(outcome.contentType)
		path := filepath.Join(c.saveDir, name)
		if err := os.WriteFile(path, outcome.data, 0o644); err != nil {
			return nil, fmt.Errorf("save result image: %w", err)
		}
		result.URL = path
		return result, nil
	}

	handle := newImageHandle(id, outcome.data)
	result.URL = handle.URL()
	result.handle = handle
	return result, nil
}

func (c *Client) persistHistoryLocked() {
	entries := make([]HistoryEntry, 0, len(c.history))
	for _, result := range c.history {
		entries = append(entries, entryFromResult(result))
	}
	if err := c.store.SaveHistory(entries); err != nil {
		logrus.WithError(err).Warn("tryon_history_save_failed")
	}
}

// Cancel 中止在途请求,无在途请求时是空操作
func (c *Client) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	// 提前推进世代号,被中止请求的回写不再生效
	c.generation++
	c.loading = false
	c.progress = 0
}

func (c *Client) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = ""
}

// ClearResult 仅移除当前结果引用,图片字节仍由历史条目持有
func (c *Client) ClearResult() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = nil
}

// ClearHistory 释放全部历史及其图片字节
func (c *Client) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, result := range c.history {
		if c.result == result {
			c.result = nil
		}
		result.release()
	}
	c.history = nil
	c.persistHistoryLocked()
}

// Retry 清除错误后重新生成
func (c *Client) Retry(ctx context.Context) error {
	c.ClearError()
	return c.Generate(ctx)
}
