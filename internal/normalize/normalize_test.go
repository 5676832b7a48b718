package normalize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"fullwidth alnum", "ＪＣＢ１２３", "JCB123"},
		{"fullwidth space", "ＶＩＳＡ　カード", "VISA カード"},
		{"halfwidth katakana", "ﾋﾞｻﾞ", "ヒ゛サ゛"},
		{"halfwidth long vowel", "ﾏｽﾀｰ", "マスター"},
		{"trims whitespace", "  JCB  ", "JCB"},
		{"plain passthrough", "売上", "売上"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCardBrand(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"jcb", "JCB"},
		{"ジェイシービー", "JCB"},
		{"ビザ", "VISA"},
		{"ＶＩＳＡ", "VISA"},
		{"マスター", "Mastercard"},
		{"アメックス", "AMEX"},
		{"d払い", "d払い"},
		{"aupay", "au PAY"},
		{"ペイペイ", "PayPay"},
		{"Suica", "交通系IC"},
		{"楽天Pay", "楽天ペイ"},
		{"ID", "iD"},
		{"クイックペイ", "QUICPay"},
		{"銀聯", "UnionPay"},
		{"地方カード", "地方カード"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := CardBrand(tt.input); got != tt.want {
				t.Errorf("CardBrand(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPaymentType(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"1回払い", "一括"},
		{"一括払い", "一括"},
		{"一回", "一括"},
		{"ボーナス一括", "ボーナス"},
		{"リボ払い", "リボ"},
		{"分割2回", "分割2回"},
		{"分割 3 回", "分割3回"},
		{"２回", "分割2回"},
		{"10回払い", "分割10回"},
		{"1回", "一括"},
		{"謎の区分", "謎の区分"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := PaymentType(tt.input); got != tt.want {
				t.Errorf("PaymentType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestClassifyPaymentCategory(t *testing.T) {
	tests := []struct {
		name        string
		paymentType string
		count       int64
		want        PaymentCategory
	}{
		{"empty defaults to lump sum", "", 1, CategoryLumpSum},
		{"zero count defaults to one", "", 0, CategoryLumpSum},
		{"two installments by count", "分割2回", 2, CategoryTwoInstallment},
		{"two installments by label only", "分割2回", 1, CategoryTwoInstallment},
		{"three installments", "分割3回", 3, CategoryOther},
		{"many installments by count", "", 10, CategoryOther},
		{"revolving", "リボ", 1, CategoryOther},
		{"installment label with count one", "分割5回", 1, CategoryOther},
		{"bonus lump sum", "ボーナス一括", 1, CategoryBonus},
		{"bonus beats installment count", "ボーナス2回", 2, CategoryBonus},
		{"plain lump sum", "一括", 1, CategoryLumpSum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyPaymentCategory(tt.paymentType, tt.count); got != tt.want {
				t.Errorf("ClassifyPaymentCategory(%q, %d) = %q, want %q", tt.paymentType, tt.count, got, tt.want)
			}
		})
	}
}

func TestCategoryPriority(t *testing.T) {
	if CategoryPriority(CategoryLumpSum) >= CategoryPriority(CategoryTwoInstallment) {
		t.Error("一括 must sort before 2回")
	}
	if CategoryPriority(CategoryTwoInstallment) >= CategoryPriority(CategoryOther) {
		t.Error("2回 must sort before その他")
	}
	if CategoryPriority(CategoryOther) >= CategoryPriority(CategoryBonus) {
		t.Error("その他 must sort before ボーナス")
	}
	if CategoryPriority(PaymentCategory("未知")) <= CategoryPriority(CategoryBonus) {
		t.Error("unknown categories must sort last")
	}
}
