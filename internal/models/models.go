// Package models holds the read-only provider and model registry the
// normalization core consumes as input. The tables are loaded once at init
// and never mutated; concurrent readers need no locking.
package models

import "strings"

// Family identifies the normalization branch used for a provider's events.
type Family string

const (
	// FamilyOpenAI covers the vendor's event-based Responses API transport
	// as well as plain chat-completion chunks from the same vendor.
	FamilyOpenAI Family = "openai"
	// FamilyOpenAICompat covers providers reusing the OpenAI chunk shape
	// (GLM/ZAI, Groq, DeepSeek and friends).
	FamilyOpenAICompat Family = "openai-compat"
	FamilyAnthropic    Family = "anthropic"
	FamilyGoogle       Family = "google-ai-studio"
	FamilyBedrock      Family = "aws-bedrock"
)

// Provider describes one upstream provider.
type Provider struct {
	ID     string
	Name   string
	Family Family
	// EnvVar names the environment variable holding the provider API key.
	EnvVar string
}

var providers = []Provider{
	{ID: "openai", Name: "OpenAI", Family: FamilyOpenAI, EnvVar: "LLM_OPENAI_API_KEY"},
	{ID: "anthropic", Name: "Anthropic", Family: FamilyAnthropic, EnvVar: "LLM_ANTHROPIC_API_KEY"},
	{ID: "google-ai-studio", Name: "Google AI Studio", Family: FamilyGoogle, EnvVar: "LLM_GOOGLE_AI_STUDIO_API_KEY"},
	{ID: "aws-bedrock", Name: "AWS Bedrock", Family: FamilyBedrock, EnvVar: "LLM_AWS_BEDROCK_API_KEY"},
	{ID: "inference.net", Name: "Inference.net", Family: FamilyOpenAICompat, EnvVar: "LLM_INFERENCE_NET_API_KEY"},
	{ID: "together.ai", Name: "Together AI", Family: FamilyOpenAICompat, EnvVar: "LLM_TOGETHER_AI_API_KEY"},
	{ID: "cloudrift", Name: "CloudRift", Family: FamilyOpenAICompat, EnvVar: "LLM_CLOUD_RIFT_API_KEY"},
	{ID: "mistral", Name: "Mistral", Family: FamilyOpenAICompat, EnvVar: "LLM_MISTRAL_API_KEY"},
	{ID: "moonshot", Name: "Moonshot", Family: FamilyOpenAICompat, EnvVar: "LLM_MOONSHOT_API_KEY"},
	{ID: "novita", Name: "Novita AI", Family: FamilyOpenAICompat, EnvVar: "LLM_NOVITA_AI_API_KEY"},
	{ID: "xai", Name: "xAI", Family: FamilyOpenAICompat, EnvVar: "LLM_X_AI_API_KEY"},
	{ID: "groq", Name: "Groq", Family: FamilyOpenAICompat, EnvVar: "LLM_GROQ_API_KEY"},
	{ID: "deepseek", Name: "DeepSeek", Family: FamilyOpenAICompat, EnvVar: "LLM_DEEPSEEK_API_KEY"},
	{ID: "perplexity", Name: "Perplexity", Family: FamilyOpenAICompat, EnvVar: "LLM_PERPLEXITY_API_KEY"},
	{ID: "alibaba", Name: "Alibaba", Family: FamilyOpenAICompat, EnvVar: "LLM_ALIBABA_API_KEY"},
	{ID: "nebius", Name: "Nebius", Family: FamilyOpenAICompat, EnvVar: "LLM_NEBIUS_API_KEY"},
	{ID: "zai", Name: "Z.AI", Family: FamilyOpenAICompat, EnvVar: "LLM_Z_AI_API_KEY"},
}

var providersByID = func() map[string]Provider {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.ID] = p
	}
	return m
}()

// Providers returns all known providers in registry order.
func Providers() []Provider {
	out := make([]Provider, len(providers))
	copy(out, providers)
	return out
}

// LookupProvider returns the provider for the given id.
func LookupProvider(id string) (Provider, bool) {
	p, ok := providersByID[strings.TrimSpace(id)]
	return p, ok
}

// FamilyFor returns the normalization family for a provider id.
// Unknown providers default to the OpenAI-compatible family.
func FamilyFor(id string) Family {
	if p, ok := LookupProvider(id); ok {
		return p.Family
	}
	return FamilyOpenAICompat
}

// Model carries per-token pricing for a known model, in USD per million
// tokens. Prices are input data for billing, not behavior.
type Model struct {
	ID          string
	Provider    string
	InputPrice  float64
	OutputPrice float64
	CachedPrice float64
}

var modelTable = []Model{
	{ID: "gpt-5", Provider: "openai", InputPrice: 1.25, OutputPrice: 10, CachedPrice: 0.125},
	{ID: "gpt-5-mini", Provider: "openai", InputPrice: 0.25, OutputPrice: 2, CachedPrice: 0.025},
	{ID: "gpt-4o", Provider: "openai", InputPrice: 2.5, OutputPrice: 10, CachedPrice: 1.25},
	{ID: "claude-sonnet-4", Provider: "anthropic", InputPrice: 3, OutputPrice: 15},
	{ID: "claude-3-5-haiku", Provider: "anthropic", InputPrice: 0.8, OutputPrice: 4},
	{ID: "gemini-2.5-pro", Provider: "google-ai-studio", InputPrice: 1.25, OutputPrice: 10},
	{ID: "gemini-2.5-flash", Provider: "google-ai-studio", InputPrice: 0.3, OutputPrice: 2.5},
	{ID: "anthropic.claude-sonnet-4-20250514-v1:0", Provider: "aws-bedrock", InputPrice: 3, OutputPrice: 15},
	{ID: "meta.llama3-1-70b-instruct-v1:0", Provider: "aws-bedrock", InputPrice: 0.72, OutputPrice: 0.72},
	{ID: "glm-4.5", Provider: "zai", InputPrice: 0.6, OutputPrice: 2.2},
	{ID: "deepseek-chat", Provider: "deepseek", InputPrice: 0.27, OutputPrice: 1.1},
}

var modelsByID = func() map[string]Model {
	m := make(map[string]Model, len(modelTable))
	for _, md := range modelTable {
		m[md.ID] = md
	}
	return m
}()

// LookupModel returns pricing data for the given model id.
func LookupModel(id string) (Model, bool) {
	md, ok := modelsByID[strings.TrimSpace(id)]
	return md, ok
}

// Cost computes the USD cost of a completed response from token counts.
// Returns false when the model is not in the pricing table.
func Cost(modelID string, promptTokens, completionTokens, cachedTokens int) (float64, bool) {
	md, ok := LookupModel(modelID)
	if !ok {
		return 0, false
	}
	uncached := promptTokens - cachedTokens
	if uncached < 0 {
		uncached = 0
	}
	cost := float64(uncached) * md.InputPrice / 1e6
	cost += float64(cachedTokens) * md.CachedPrice / 1e6
	cost += float64(completionTokens) * md.OutputPrice / 1e6
	return cost, true
}
