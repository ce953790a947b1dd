package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Provider 选择模型网关的实现。
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderArk       Provider = "ark"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Personas PersonaConfig
	Events   EventsConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		AI:       ai,
		Personas: PersonaConfig{File: strings.TrimSpace(os.Getenv("PERSONAS_FILE"))},
		Events:   loadEventsConfig(),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr          string
	SessionCookie string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	cookie := getEnvOrDefault("SESSION_COOKIE", "ruffie_session")

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, SessionCookie: cookie}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, SessionCookie: cookie}, nil
}

// AIConfig 描述大模型网关相关配置。
type AIConfig struct {
	Provider  Provider
	MaxTokens int
	Timeout   time.Duration
	Anthropic AnthropicConfig
	OpenAI    OpenAIConfig
	Ark       ArkConfig
}

// AnthropicConfig 描述 Anthropic Messages API。
type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIConfig 描述 OpenAI Chat Completions API。
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
}

// ArkConfig 描述火山方舟模型配置。
type ArkConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
}

// Enabled 表示当前选择的网关是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderAnthropic:
		return c.Anthropic.APIKey != ""
	case ProviderOpenAI:
		return c.OpenAI.APIKey != ""
	case ProviderArk:
		return c.Ark.Enabled()
	default:
		return false
	}
}

// Enabled 表示是否提供了必需的 Ark 密钥。
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个 Ark 模型实例。
func (c ArkConfig) NewChatModel(ctx context.Context, maxTokens int, timeout time.Duration) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var tokens *int
	if maxTokens > 0 {
		tokens = &maxTokens
	}

	var requestTimeout *time.Duration
	if timeout > 0 {
		requestTimeout = &timeout
	}

	// 每次提交只调用一次模型，关闭 SDK 自带的重试。
	retryTimes := 0

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   tokens,
		Temperature: temperature,
		TopP:        topP,
		Timeout:     requestTimeout,
		RetryTimes:  &retryTimes,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	provider := Provider(strings.ToLower(getEnvOrDefault("MODEL_PROVIDER", string(ProviderAnthropic))))
	switch provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderArk:
	default:
		return AIConfig{}, fmt.Errorf("invalid MODEL_PROVIDER value: %q", provider)
	}

	maxTokens := 1500
	if override, err := parseOptionalIntEnv("MODEL_MAX_TOKENS"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AIConfig{}, fmt.Errorf("invalid MODEL_MAX_TOKENS value %d: must be positive", *override)
		}
		maxTokens = *override
	}

	timeoutSeconds := 120
	if override, err := parseOptionalIntEnv("MODEL_TIMEOUT_SECONDS"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		timeoutSeconds = *override
	}

	openAITemperature := 0.7
	if override, err := parseOptionalFloatEnv("OPENAI_TEMPERATURE"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		openAITemperature = *override
	}

	arkTemperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	arkTopP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		Provider:  provider,
		MaxTokens: maxTokens,
		Timeout:   time.Duration(timeoutSeconds) * time.Second,
		Anthropic: AnthropicConfig{
			APIKey:  strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
			Model:   getEnvOrDefault("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			BaseURL: getEnvOrDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		},
		OpenAI: OpenAIConfig{
			APIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			Model:       getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:     getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com"),
			Temperature: openAITemperature,
		},
		Ark: ArkConfig{
			APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
			AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
			SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
			Model:       strings.TrimSpace(os.Getenv("Model")),
			BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
			Temperature: arkTemperature,
			TopP:        arkTopP,
		},
	}, nil
}

// PersonaConfig 描述人设覆盖文件。
type PersonaConfig struct {
	File string
}

// EventsConfig 描述 NATS 事件发布配置，URL 为空时不发布。
type EventsConfig struct {
	NATSURL       string
	NATSToken     string
	SubjectPrefix string
}

// Enabled 表示是否配置了 NATS。
func (c EventsConfig) Enabled() bool {
	return c.NATSURL != ""
}

func loadEventsConfig() EventsConfig {
	return EventsConfig{
		NATSURL:       strings.TrimSpace(os.Getenv("NATS_URL")),
		NATSToken:     strings.TrimSpace(os.Getenv("NATS_TOKEN")),
		SubjectPrefix: getEnvOrDefault("NATS_SUBJECT", "ruffie"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
