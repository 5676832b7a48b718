package ingest

import (
	"fmt"
	"strings"
	"time"

	infraBQ "github.com/ktsuji/card-recon/internal/infra/bigquery"
)

// defaultBrandList steers the model when no payee groups are configured yet.
const defaultBrandList = "JCB / VISA / Mastercard / AMEX / Diners / iD / QUICPay / 交通系IC / d払い / au PAY / PayPay / 楽天ペイ"

// buildBrandList joins the configured group names and their member brands
// into the list the model must pick from.
func buildBrandList(groups []*infraBQ.GroupRow) string {
	seen := make(map[string]struct{})
	var names []string
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	for _, g := range groups {
		for _, b := range g.Brands {
			add(b)
		}
	}
	if len(names) == 0 {
		return defaultBrandList
	}
	return strings.Join(names, " / ")
}

// buildSlipPrompt constructs the Japanese extraction prompt for a single
// uploaded file. The current date is included because slips often print the
// year in two digits and the model tends to misread it as last year.
func buildSlipPrompt(brandList, mimeType string, now time.Time) string {
	kind := "画像"
	pages := "画像内の"
	if mimeType == "application/pdf" {
		kind = "PDF"
		pages = "PDF内の全ページを確認し、"
	}

	return fmt.Sprintf(`この%sに含まれる全てのクレジットカード加盟店控え（レシート）を読み取ってください。
複数枚ある場合は全て抽出し、JSON配列で返してください。
JSONのみを返し、マークダウンや説明文は含めないでください。

出力形式（必ず配列で返す）:
[
  {
    "transaction_date": "YYYY-MM-DD",
    "slip_number": "伝票番号",
    "transaction_content": "売上/取消/返品など",
    "payment_type": "一括/分割2回/分割3回/リボ/ボーナスなど（なければnull）",
    "installment_count": 1,
    "terminal_number": "端末番号",
    "card_brand": "決済種別",
    "amount": 12345,
    "clerk": "係員名（なければnull）",
    "confidence": "high/medium/low"
  }
]

1枚でも必ず配列で返してください: [{ ... }]

抽出ルール:
- transaction_date: ご利用日、取引日の日付をYYYY-MM-DD形式で
- slip_number: 伝票番号、伝票No、取引通番、注文番号
- transaction_content: 取引内容（売上、取消、返品など）
- payment_type: 支払区分（一括、分割2回、分割3回、リボ、ボーナス等）。
  分割の場合は必ず「分割N回」の形式で回数を含めること。記載なければnull
- installment_count: 分割回数の数値（一括=1、分割2回=2、分割3回=3 等）。
  分割以外またはnullの場合は1
- terminal_number: TID、端末ID、端末番号の値
- card_brand: レシート上のカード会社名・ブランドロゴ・マークから判別し、
  以下のリストから最も近いものを**そのまま**返すこと:
  [%s]
  ※上記リストに該当がなければ「その他」と返す
- amount: 合計金額の数値（取消・返品はマイナス値）
- clerk: 係員欄の手書き名や印鑑（カード名義人ではない）
- confidence: 読み取り確信度

注意:
- カード番号は絶対に抽出しないこと
- %s全てのレシートを漏れなく抽出すること
- 現在は%d年%d月です。年の読み取りには特に注意し、%d年と誤読しないようにしてください`,
		kind, brandList, pages, now.Year(), int(now.Month()), now.Year()-1)
}
