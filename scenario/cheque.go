package scenario

import (
	"fmt"
	"strconv"
	"time"

	"github.com/BaSui01/creditverify/config"
)

// ISODate 日期输入框使用的格式
const ISODate = "2006-01-02"

// ChequeRecord 提交到被测应用的支票数据，构造后不可变
type ChequeRecord struct {
	Number     string    `json:"number"`
	Bank       string    `json:"bank"`
	Amount     float64   `json:"amount"`
	PersonName string    `json:"person_name"`
	Contact    string    `json:"contact"`
	Due        time.Time `json:"due"`
}

// NewChequeRecord 由配置构造支票，到期日为 now 之后 DueInDays 个自然日
func NewChequeRecord(cfg config.ChequeConfig, now time.Time) ChequeRecord {
	y, m, d := now.Date()
	return ChequeRecord{
		Number:     cfg.Number,
		Bank:       cfg.Bank,
		Amount:     cfg.Amount,
		PersonName: cfg.PersonName,
		Contact:    cfg.Contact,
		Due:        time.Date(y, m, d+cfg.DueInDays, 0, 0, 0, 0, now.Location()),
	}
}

// DueISO 到期日的 ISO 表示
func (c ChequeRecord) DueISO() string { return c.Due.Format(ISODate) }

// AmountInput 金额输入框中填写的文本，不带多余小数位
func (c ChequeRecord) AmountInput() string {
	return strconv.FormatFloat(c.Amount, 'f', -1, 64)
}

// AmountLabel 列表中展示的金额
func (c ChequeRecord) AmountLabel() string { return FormatLKR(c.Amount) }

// FormatLKR 以两位小数渲染斯里兰卡卢比金额
func FormatLKR(amount float64) string {
	return fmt.Sprintf("LKR %.2f", amount)
}

// Bucket 到期分组
type Bucket string

const (
	BucketOverdue  Bucket = "Overdue"
	BucketDueToday Bucket = "Due Today"
	BucketDueSoon  Bucket = "Due Soon"
	BucketUpcoming Bucket = "Upcoming"
)

// DueSoonWindow 被归入 Due Soon 的最大天数
const DueSoonWindow = 7

// DaysUntil 按自然日计算 due 距 now 的天数，忽略时分秒
func DaysUntil(due, now time.Time) int {
	dy, dm, dd := due.Date()
	ny, nm, nd := now.Date()
	a := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(a.Sub(b).Hours() / 24)
}

// Classify 计算到期分组：已过期、今天、7 天内、更晚
func Classify(due, now time.Time) Bucket {
	switch days := DaysUntil(due, now); {
	case days < 0:
		return BucketOverdue
	case days == 0:
		return BucketDueToday
	case days <= DueSoonWindow:
		return BucketDueSoon
	default:
		return BucketUpcoming
	}
}

// String implements fmt.Stringer.
func (b Bucket) String() string { return string(b) }
