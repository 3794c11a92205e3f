package payments

// Fixed lookup of gateway failure codes to user-facing descriptions. Codes
// the table does not know fall back to the UNKNOWN_ERROR entry; the raw code
// is still surfaced for support.
var failureDescriptions = map[string]string{
	"PAY_PROCESS_CANCELED": "사용자가 결제를 취소했습니다.",
	"PAY_PROCESS_ABORTED":  "결제 진행 중 오류가 발생했습니다.",
	"REJECT_CARD_COMPANY":  "카드사에서 승인을 거부했습니다.",
	"INVALID_CARD_NUMBER":  "유효하지 않은 카드번호입니다.",
	"NOT_ENOUGH_BALANCE":   "잔액이 부족합니다.",
	"EXCEED_MAX_AMOUNT":    "결제 한도를 초과했습니다.",
	"UNKNOWN_ERROR":        "알 수 없는 오류가 발생했습니다.",
}

func DescribeFailure(code string) string {
	if desc, ok := failureDescriptions[code]; ok {
		return desc
	}
	return failureDescriptions["UNKNOWN_ERROR"]
}
