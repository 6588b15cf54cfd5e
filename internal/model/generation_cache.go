package model

type GenerationCacheEntry struct {
	Key      string `json:"key"`
	Model    string `json:"model"`
	Response string `json:"response"`
	Ctime    int64  `json:"ctime"`
	ExpireAt int64  `json:"expire_at"`
}
