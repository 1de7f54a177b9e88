package gate

// 关键词均为小写，按子串匹配
var (
	scamKeywords = []string{
		"guaranteed returns",
		"guaranteed profit",
		"get rich quick",
		"double your money",
		"risk-free investment",
		"ponzi",
		"pyramid scheme",
		"mlm",
		"multi-level marketing",
		"crypto giveaway",
		"send bitcoin",
		"wire transfer fee",
	}

	hypeKeywords = []string{
		"revolutionary",
		"game-changing",
		"game changer",
		"best ever",
		"world's first",
		"next big thing",
		"100% guaranteed",
		"unbelievable",
		"mind-blowing",
		"disrupting everything",
	}

	serviceKeywords = []string{
		"agency",
		"freelance",
		"freelancer",
		"consulting",
		"consultancy",
		"outsourcing",
		"dev shop",
		"hire us",
		"our services",
	}
)
