package model

// FlagSet 保持插入顺序的标记集合，重复添加无效
type FlagSet struct {
	items []string
	seen  map[string]struct{}
}

func NewFlagSet() *FlagSet {
	return &FlagSet{seen: make(map[string]struct{})}
}

// Add 添加标记，忽略空字符串
func (s *FlagSet) Add(flags ...string) {
	for _, f := range flags {
		if f == "" {
			continue
		}
		if _, ok := s.seen[f]; ok {
			continue
		}
		s.seen[f] = struct{}{}
		s.items = append(s.items, f)
	}
}

func (s *FlagSet) Has(flag string) bool {
	_, ok := s.seen[flag]
	return ok
}

func (s *FlagSet) Len() int {
	return len(s.items)
}

// Slice 返回副本，永不为 nil
func (s *FlagSet) Slice() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// 快速审核产生的标记
const (
	FlagNoProductURL        = "no_product_url"
	FlagInvalidProductURL   = "invalid_product_url"
	FlagURLNotAccessible    = "product_url_not_accessible"
	FlagSocialMediaURL      = "social_media_url"
	FlagProductNotLive      = "product_not_live"
	FlagDescriptionTooShort = "problem_description_too_short"
	FlagScamIndicators      = "scam_indicators"
	FlagVagueDescription    = "vague_description"
	FlagNotAStartupProduct  = "not_a_startup_product"
	FlagExcessiveCaps       = "excessive_caps"
)
