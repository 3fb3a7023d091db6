package fakeapp

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/creditverify/scenario"
)

// ChequeType 收到或开出
type ChequeType string

const (
	ChequeComing ChequeType = "coming"
	ChequeGiven  ChequeType = "given"
)

// Cheque 已保存的支票
type Cheque struct {
	ID      int        `json:"id"`
	Number  string     `json:"number"`
	Bank    string     `json:"bank"`
	Amount  float64    `json:"amount"`
	Name    string     `json:"name"`
	Contact string     `json:"contact"`
	Type    ChequeType `json:"type"`
	Date    string     `json:"date"`
	Owner   string     `json:"-"`
	Created time.Time  `json:"created_at"`
}

// ChequeView 列表行，分组与金额文本由服务端计算
type ChequeView struct {
	Cheque
	Bucket      string `json:"bucket"`
	AmountLabel string `json:"amount_label"`
}

type ChequeList struct {
	Cheques     []ChequeView `json:"cheques"`
	ComingTotal string       `json:"coming_total"`
	GivenTotal  string       `json:"given_total"`
}

type addChequeRequest struct {
	Number  string     `json:"number"`
	Bank    string     `json:"bank"`
	Amount  string     `json:"amount"`
	Name    string     `json:"name"`
	Contact string     `json:"contact"`
	Type    ChequeType `json:"type"`
	Date    string     `json:"date"`
}

// validate 返回前端可直接 alert 的错误文本
func (req addChequeRequest) validate(loc *time.Location) (Cheque, string) {
	if req.Number == "" || req.Bank == "" || req.Amount == "" || req.Name == "" || req.Contact == "" || req.Date == "" {
		return Cheque{}, "Error: All fields are required"
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(req.Amount), 64)
	if err != nil || amount <= 0 {
		return Cheque{}, "Error: Invalid amount"
	}
	if _, err := time.ParseInLocation(scenario.ISODate, req.Date, loc); err != nil {
		return Cheque{}, "Error: Invalid due date"
	}
	typ := req.Type
	if typ == "" {
		typ = ChequeComing
	}
	if typ != ChequeComing && typ != ChequeGiven {
		return Cheque{}, "Error: Invalid check type"
	}
	return Cheque{
		Number:  req.Number,
		Bank:    req.Bank,
		Amount:  amount,
		Name:    req.Name,
		Contact: req.Contact,
		Type:    typ,
		Date:    req.Date,
	}, ""
}

func (a *App) handleAddCheque(w http.ResponseWriter, r *http.Request) {
	var req addChequeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Error: Invalid request")
		return
	}
	now := a.opts.Now()
	c, msg := req.validate(now.Location())
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	c.Owner = subjectFromContext(r.Context())
	c.Created = now

	a.mu.Lock()
	a.nextID++
	c.ID = a.nextID
	a.cheques = append(a.cheques, c)
	a.mu.Unlock()

	a.logger.Info("cheque saved", zap.Int("id", c.ID), zap.String("number", c.Number), zap.String("type", string(c.Type)))
	writeJSON(w, http.StatusCreated, a.view(c, now))
}

func (a *App) handleListCheques(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.List(subjectFromContext(r.Context())))
}

// List 返回 owner 的支票列表与两类合计
func (a *App) List(owner string) ChequeList {
	now := a.opts.Now()
	a.mu.Lock()
	defer a.mu.Unlock()

	out := ChequeList{Cheques: []ChequeView{}}
	var coming, given float64
	for _, c := range a.cheques {
		if c.Owner != owner {
			continue
		}
		out.Cheques = append(out.Cheques, a.view(c, now))
		switch c.Type {
		case ChequeGiven:
			given += c.Amount
		default:
			coming += c.Amount
		}
	}
	out.ComingTotal = scenario.FormatLKR(coming)
	out.GivenTotal = scenario.FormatLKR(given)
	return out
}

// Cheques 返回所有已保存支票的副本
func (a *App) Cheques() []Cheque {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Cheque(nil), a.cheques...)
}

func (a *App) view(c Cheque, now time.Time) ChequeView {
	due, err := time.ParseInLocation(scenario.ISODate, c.Date, now.Location())
	bucket := ""
	if err == nil {
		bucket = scenario.Classify(due, now).String()
	}
	return ChequeView{Cheque: c, Bucket: bucket, AmountLabel: scenario.FormatLKR(c.Amount)}
}
