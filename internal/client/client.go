// Package client содержит HTTP-клиенты внешних сервисов: каталога, профилей и доставки.
// Все сервисы отвечают конвертом {status, message, data}.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

const (
	// DefaultConnectTimeout — таймаут установки соединения.
	DefaultConnectTimeout = 1000 * time.Millisecond
	// DefaultReadTimeout — таймаут ожидания ответа на каждый вызов.
	DefaultReadTimeout = 30000 * time.Millisecond

	statusFailure = "failure"

	maxResponseBytes = 4 << 20
)

// Config описывает подключение к одному внешнему сервису.
type Config struct {
	BaseURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	// HTTPClient позволяет подменить транспорт (тесты). По умолчанию строится из таймаутов.
	HTTPClient *http.Client
	Logger     *log.Entry
}

// NewHTTPClient создаёт http.Client с таймаутами соединения и чтения ответа.
func NewHTTPClient(connectTimeout, readTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ResponseHeaderTimeout: readTimeout,
		TLSHandshakeTimeout:   connectTimeout,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{Transport: transport}
}

// envelope — общий формат ответа внешних сервисов.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// caller инкапсулирует общий цикл запрос/ответ.
type caller struct {
	service     string
	baseURL     *url.URL
	http        *http.Client
	readTimeout time.Duration
	logger      *log.Entry
}

func newCaller(service string, cfg Config) (*caller, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("%s service url is required", service)
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s service url: %w", service, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%s service url must be absolute: %q", service, cfg.BaseURL)
	}

	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg.ConnectTimeout, cfg.ReadTimeout)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New().WithField("component", "client")
	}

	return &caller{
		service:     service,
		baseURL:     base,
		http:        httpClient,
		readTimeout: cfg.ReadTimeout,
		logger:      logger.WithField("service", service),
	}, nil
}

// endpoint собирает URL из экранируемых сегментов пути и query.
func (c *caller) endpoint(query url.Values, segments ...string) string {
	u := *c.baseURL
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	baseRaw := strings.TrimRight(u.EscapedPath(), "/")
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(segments, "/")
	u.RawPath = baseRaw + "/" + strings.Join(escaped, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// call выполняет запрос с таймаутом чтения и разбирает конверт ответа в out.
func (c *caller) call(ctx context.Context, method, target string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", c.service, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", c.service, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.WithFields(log.Fields{"method": method, "url": target}).Debug("calling external service")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrExternalService, method, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", domain.ErrExternalService, c.service, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%w: %s %s returned %d: %s", domain.ErrExternalService, method, target, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: decode %s response: %v", domain.ErrExternalService, c.service, decodeErr)
	}
	if strings.EqualFold(env.Status, statusFailure) {
		return fmt.Errorf("%w: %s reported failure: %s", domain.ErrExternalService, c.service, env.Message)
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode %s data: %v", domain.ErrExternalService, c.service, err)
	}
	return nil
}
