package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"bandar/helpers"
	"bandar/metrics"
	"bandar/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxResponseBody = 64 << 10
	maxErrorLen     = 512
	retryBatch      = 100
)

var (
	ErrDeliveryNotFound = errors.New("no delivery recorded for wager_code")
	ErrAlreadyDelivered = errors.New("callback already delivered")
)

// DeliveryError describes a failed attempt. It never unwinds settlement.
type DeliveryError struct {
	WagerCode  string
	URL        string
	HTTPStatus int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("deliver %s to %s: http %d: %v", e.WagerCode, e.URL, e.HTTPStatus, e.Err)
	}
	return fmt.Sprintf("deliver %s to %s: %v", e.WagerCode, e.URL, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Delivery is the outcome of one attempt.
type Delivery struct {
	WagerCode  string    `json:"wager_code"`
	URL        string    `json:"url"`
	Status     string    `json:"status"`
	Attempt    int       `json:"attempt"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Response   *Response `json:"response,omitempty"`
	Err        error     `json:"-"`
}

func (d Delivery) Delivered() bool { return d.Status == models.DeliveryDelivered }

// FailureSink is told about every failed attempt, for alerting.
type FailureSink interface {
	DeliveryFailed(ctx context.Context, d Delivery)
}

type Options struct {
	ConnectTimeout time.Duration
	Timeout        time.Duration
}

// Dispatcher signs and POSTs settlement callbacks. Each call makes exactly
// one attempt; retries belong to the redelivery job or to operators.
type Dispatcher struct {
	db      *gorm.DB
	client  *http.Client
	timeout time.Duration
	sink    FailureSink
	log     *zap.Logger
}

// NewDispatcher builds a dispatcher. db may be nil, in which case attempts
// are not recorded.
func NewDispatcher(db *gorm.DB, opts Options, sink FailureSink, log *zap.Logger) *Dispatcher {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: opts.ConnectTimeout, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.Timeout,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Dispatcher{
		db:      db,
		client:  &http.Client{Timeout: opts.Timeout, Transport: transport},
		timeout: opts.Timeout,
		sink:    sink,
		log:     log.Named("callback"),
	}
}

// Dispatch signs payload with secretKey and sends it to url.
func (d *Dispatcher) Dispatch(ctx context.Context, agentCode, url string, payload Payload, secretKey string) Delivery {
	payload.Signature = ""
	sig, err := helpers.SignPayload(payload, secretKey)
	if err != nil {
		return d.fail(ctx, agentCode, Delivery{WagerCode: payload.WagerCode, URL: url}, nil, err)
	}
	payload.Signature = sig

	body, err := json.Marshal(payload)
	if err != nil {
		return d.fail(ctx, agentCode, Delivery{WagerCode: payload.WagerCode, URL: url}, nil, err)
	}
	if url == "" {
		return d.fail(ctx, agentCode, Delivery{WagerCode: payload.WagerCode}, body, ErrNoCallbackURL)
	}

	return d.send(ctx, agentCode, payload.WagerCode, url, body)
}

// Redeliver replays the last recorded payload of wagerCode to its URL. The
// payload keeps its original signature so receivers dedupe it.
func (d *Dispatcher) Redeliver(ctx context.Context, wagerCode string) (Delivery, error) {
	if d.db == nil {
		return Delivery{}, ErrDeliveryNotFound
	}

	var last models.CallbackDelivery
	err := d.db.WithContext(ctx).Where("wager_code = ?", wagerCode).Order("id DESC").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Delivery{}, ErrDeliveryNotFound
	}
	if err != nil {
		return Delivery{}, err
	}
	if last.Status == models.DeliveryDelivered {
		return Delivery{}, ErrAlreadyDelivered
	}
	if len(last.Payload) == 0 || last.URL == "" {
		return Delivery{}, fmt.Errorf("redeliver %s: %w", wagerCode, ErrNoCallbackURL)
	}

	return d.send(ctx, last.AgentCode, wagerCode, last.URL, last.Payload), nil
}

// Failed lists the latest attempt of every wager_code whose latest attempt
// failed, oldest first.
func (d *Dispatcher) Failed(ctx context.Context, limit int) ([]models.CallbackDelivery, error) {
	if limit <= 0 {
		limit = 100
	}
	return d.failedAfter(ctx, 0, limit)
}

func (d *Dispatcher) failedAfter(ctx context.Context, afterID uint, limit int) ([]models.CallbackDelivery, error) {
	if d.db == nil {
		return nil, nil
	}

	latest := d.db.Model(&models.CallbackDelivery{}).Select("MAX(id)").Group("wager_code")

	var rows []models.CallbackDelivery
	err := d.db.WithContext(ctx).
		Where("id IN (?)", latest).
		Where("status = ? AND id > ?", models.DeliveryFailed, afterID).
		Order("id").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// RetryDue redelivers failed callbacks the policy considers due. It walks
// every failed wager, so exhausted ones never hide newer failures, and stops
// after retryBatch redeliveries.
func (d *Dispatcher) RetryDue(ctx context.Context, policy RetryPolicy, now time.Time) (int, error) {
	if !policy.Enabled() {
		return 0, nil
	}

	retried := 0
	var cursor uint
	seen := make(map[string]struct{})
	for retried < retryBatch {
		rows, err := d.failedAfter(ctx, cursor, retryBatch)
		if err != nil {
			return retried, err
		}

		for _, row := range rows {
			cursor = row.ID
			if retried >= retryBatch {
				break
			}
			if _, ok := seen[row.WagerCode]; ok {
				continue
			}
			seen[row.WagerCode] = struct{}{}
			if !policy.Due(row.Attempt, row.CreatedAt, now) {
				continue
			}
			if _, err := d.Redeliver(ctx, row.WagerCode); err != nil {
				d.log.Error("redelivery skipped", zap.String("wager_code", row.WagerCode), zap.Error(err))
				continue
			}
			retried++
		}

		if len(rows) < retryBatch {
			break
		}
	}
	return retried, nil
}

func (d *Dispatcher) send(ctx context.Context, agentCode, wagerCode, url string, body []byte) Delivery {
	delivery := Delivery{WagerCode: wagerCode, URL: url}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return d.fail(ctx, agentCode, delivery, body, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := d.client.Do(req)
	metrics.CallbackDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return d.fail(ctx, agentCode, delivery, body, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	delivery.HTTPStatus = resp.StatusCode
	if err != nil {
		return d.fail(ctx, agentCode, delivery, body, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return d.fail(ctx, agentCode, delivery, body, fmt.Errorf("unexpected status %s", resp.Status))
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return d.fail(ctx, agentCode, delivery, body, fmt.Errorf("unparseable response: %w", err))
	}
	delivery.Response = &out
	if out.Status != helpers.StatusSuccess {
		return d.fail(ctx, agentCode, delivery, body, fmt.Errorf("client rejected: %s %s", out.Code, out.Message))
	}

	delivery.Status = models.DeliveryDelivered
	delivery.Attempt = d.record(ctx, agentCode, delivery, body, time.Since(start))
	metrics.CallbackDeliveries.WithLabelValues(delivery.Status).Inc()

	d.log.Info("callback delivered",
		zap.String("wager_code", wagerCode),
		zap.String("url", url),
		zap.String("code", out.Code),
		zap.Int("attempt", delivery.Attempt),
	)
	return delivery
}

func (d *Dispatcher) fail(ctx context.Context, agentCode string, delivery Delivery, body []byte, cause error) Delivery {
	delivery.Status = models.DeliveryFailed
	delivery.Err = &DeliveryError{
		WagerCode:  delivery.WagerCode,
		URL:        delivery.URL,
		HTTPStatus: delivery.HTTPStatus,
		Err:        cause,
	}
	delivery.Attempt = d.record(ctx, agentCode, delivery, body, 0)
	metrics.CallbackDeliveries.WithLabelValues(delivery.Status).Inc()

	d.log.Error("callback delivery failed",
		zap.String("wager_code", delivery.WagerCode),
		zap.String("url", delivery.URL),
		zap.Int("http_status", delivery.HTTPStatus),
		zap.Int("attempt", delivery.Attempt),
		zap.Error(cause),
	)

	if d.sink != nil {
		d.sink.DeliveryFailed(context.WithoutCancel(ctx), delivery)
	}
	return delivery
}

// record stores the attempt and returns its attempt number.
func (d *Dispatcher) record(ctx context.Context, agentCode string, delivery Delivery, body []byte, took time.Duration) int {
	if d.db == nil {
		return 1
	}

	db := d.db.WithContext(context.WithoutCancel(ctx))

	var previous int64
	if err := db.Model(&models.CallbackDelivery{}).Where("wager_code = ?", delivery.WagerCode).Count(&previous).Error; err != nil {
		d.log.Error("count deliveries", zap.String("wager_code", delivery.WagerCode), zap.Error(err))
	}

	row := models.CallbackDelivery{
		WagerCode:  delivery.WagerCode,
		AgentCode:  agentCode,
		URL:        delivery.URL,
		Attempt:    int(previous) + 1,
		Status:     delivery.Status,
		HTTPStatus: delivery.HTTPStatus,
		Payload:    body,
		DurationMs: took.Milliseconds(),
	}
	if delivery.Response != nil {
		row.ResponseCode = delivery.Response.Code
	}
	if delivery.Err != nil {
		row.Error = truncate(delivery.Err.Error(), maxErrorLen)
	}

	if err := db.Create(&row).Error; err != nil {
		d.log.Error("record delivery", zap.String("wager_code", delivery.WagerCode), zap.Error(err))
	}
	return row.Attempt
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
