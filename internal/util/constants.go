package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	BannerOptionAI     = "ai"
	BannerOptionCustom = "custom"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// RawResponseLimit 返回给前端用于排查的原始文本长度上限
const RawResponseLimit = 2000
