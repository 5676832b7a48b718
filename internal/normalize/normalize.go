// Package normalize cleans up OCR-extracted slip fields: fullwidth/halfwidth
// unification, card brand canonicalization, and payment category
// classification.
package normalize

import (
	"regexp"
	"strings"
)

// PaymentCategory is the closed set of payment classifications used for
// reconciliation bucketing.
type PaymentCategory string

const (
	// CategoryLumpSum covers one-time payments (null/1回/一括).
	CategoryLumpSum PaymentCategory = "一括"
	// CategoryTwoInstallment covers two-installment payments.
	CategoryTwoInstallment PaymentCategory = "2回"
	// CategoryOther covers 3+ installments and revolving credit.
	CategoryOther PaymentCategory = "その他"
	// CategoryBonus covers bonus payments.
	CategoryBonus PaymentCategory = "ボーナス"
)

// CategoryPriority returns the fixed display order of a category
// (一括, 2回, その他, ボーナス). Unknown categories sort last.
func CategoryPriority(c PaymentCategory) int {
	switch c {
	case CategoryLumpSum:
		return 0
	case CategoryTwoInstallment:
		return 1
	case CategoryOther:
		return 2
	case CategoryBonus:
		return 3
	default:
		return 4
	}
}

// halfwidth katakana -> fullwidth katakana
var kanaMap = map[rune]rune{
	'ｱ': 'ア', 'ｲ': 'イ', 'ｳ': 'ウ', 'ｴ': 'エ', 'ｵ': 'オ',
	'ｶ': 'カ', 'ｷ': 'キ', 'ｸ': 'ク', 'ｹ': 'ケ', 'ｺ': 'コ',
	'ｻ': 'サ', 'ｼ': 'シ', 'ｽ': 'ス', 'ｾ': 'セ', 'ｿ': 'ソ',
	'ﾀ': 'タ', 'ﾁ': 'チ', 'ﾂ': 'ツ', 'ﾃ': 'テ', 'ﾄ': 'ト',
	'ﾅ': 'ナ', 'ﾆ': 'ニ', 'ﾇ': 'ヌ', 'ﾈ': 'ネ', 'ﾉ': 'ノ',
	'ﾊ': 'ハ', 'ﾋ': 'ヒ', 'ﾌ': 'フ', 'ﾍ': 'ヘ', 'ﾎ': 'ホ',
	'ﾏ': 'マ', 'ﾐ': 'ミ', 'ﾑ': 'ム', 'ﾒ': 'メ', 'ﾓ': 'モ',
	'ﾔ': 'ヤ', 'ﾕ': 'ユ', 'ﾖ': 'ヨ',
	'ﾗ': 'ラ', 'ﾘ': 'リ', 'ﾙ': 'ル', 'ﾚ': 'レ', 'ﾛ': 'ロ',
	'ﾜ': 'ワ', 'ﾝ': 'ン',
	'ﾞ': '゛', 'ﾟ': '゜', 'ｰ': 'ー', '･': '・',
}

// Text converts fullwidth alphanumerics to halfwidth, fullwidth spaces to
// halfwidth, halfwidth katakana to fullwidth, and trims whitespace.
func Text(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'Ａ' && r <= 'Ｚ', r >= 'ａ' && r <= 'ｚ', r >= '０' && r <= '９':
			b.WriteRune(r - 0xFEE0)
		case r == '　':
			b.WriteRune(' ')
		case r >= '･' && r <= 'ﾟ':
			if full, ok := kanaMap[r]; ok {
				b.WriteRune(full)
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// brandAlias maps raw OCR card brand spellings onto canonical names.
type brandAlias struct {
	pattern   *regexp.Regexp
	canonical string
}

var brandAliases = []brandAlias{
	{regexp.MustCompile(`(?i)^(JCB|ジェイシービー|ジェーシービー)$`), "JCB"},
	{regexp.MustCompile(`(?i)^(VISA|ビザ)$`), "VISA"},
	{regexp.MustCompile(`(?i)^(Mastercard|MC|マスターカード|マスター)$`), "Mastercard"},
	{regexp.MustCompile(`(?i)^(AMEX|アメックス|アメリカンエキスプレス|American\s*Express)$`), "AMEX"},
	{regexp.MustCompile(`(?i)^(Diners|ダイナース|ダイナースクラブ|Diners\s*Club)$`), "Diners"},
	{regexp.MustCompile(`^(d払い|D払い|d\s*払い)$`), "d払い"},
	{regexp.MustCompile(`(?i)^(au\s*PAY|auペイ|aupay)$`), "au PAY"},
	{regexp.MustCompile(`(?i)^(PayPay|ペイペイ)$`), "PayPay"},
	{regexp.MustCompile(`(?i)^(交通系IC|交通系|Suica|PASMO|ICOCA)$`), "交通系IC"},
	{regexp.MustCompile(`(?i)^(楽天ペイ|楽天Pay|Rakuten\s*Pay)$`), "楽天ペイ"},
	{regexp.MustCompile(`^(iD|ID)$`), "iD"},
	{regexp.MustCompile(`(?i)^(QUICPay|クイックペイ)$`), "QUICPay"},
	{regexp.MustCompile(`(?i)^(UnionPay|銀聯|ユニオンペイ)$`), "UnionPay"},
}

// CardBrand normalizes a card company name onto its canonical spelling.
// Unrecognized brands are returned normalized but otherwise unchanged.
// Empty input stays empty.
func CardBrand(brand string) string {
	if brand == "" {
		return ""
	}
	normalized := Text(brand)
	for _, a := range brandAliases {
		if a.pattern.MatchString(normalized) {
			return a.canonical
		}
	}
	return normalized
}

var (
	lumpSumRe     = regexp.MustCompile(`(?i)^(一括|1回|1回払|一回|一回払|1回払い|一括払い?)$`)
	bonusRe       = regexp.MustCompile(`ボーナス`)
	revolvingRe   = regexp.MustCompile(`リボ`)
	installmentRe = regexp.MustCompile(`分割\s*(\d+)\s*回`)
	countOnlyRe   = regexp.MustCompile(`^(\d+)\s*回`)
	twoInstallRe  = regexp.MustCompile(`分割2回`)
	anyInstallRe  = regexp.MustCompile(`分割\d+回`)
)

// PaymentType normalizes a payment type label:
// "1回払い" -> "一括", "分割 2 回" -> "分割2回", "ボーナス一括" -> "ボーナス".
// Empty input stays empty.
func PaymentType(pt string) string {
	if pt == "" {
		return ""
	}
	s := Text(pt)
	if lumpSumRe.MatchString(s) {
		return "一括"
	}
	if bonusRe.MatchString(s) {
		return "ボーナス"
	}
	if revolvingRe.MatchString(s) {
		return "リボ"
	}
	if m := installmentRe.FindStringSubmatch(s); m != nil {
		return "分割" + m[1] + "回"
	}
	if m := countOnlyRe.FindStringSubmatch(s); m != nil {
		if m[1] == "1" {
			return "一括"
		}
		return "分割" + m[1] + "回"
	}
	return s
}

// ClassifyPaymentCategory maps a payment type label plus installment count to
// a PaymentCategory. Total function: unknown or empty inputs fall through to
// 一括. An installment count of 0 or less is treated as the default 1.
func ClassifyPaymentCategory(paymentType string, installmentCount int64) PaymentCategory {
	count := installmentCount
	if count <= 0 {
		count = 1
	}

	if bonusRe.MatchString(paymentType) {
		return CategoryBonus
	}
	if count == 2 || twoInstallRe.MatchString(paymentType) {
		return CategoryTwoInstallment
	}
	if count >= 3 || revolvingRe.MatchString(paymentType) || anyInstallRe.MatchString(paymentType) {
		return CategoryOther
	}
	return CategoryLumpSum
}
