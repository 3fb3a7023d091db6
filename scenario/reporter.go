package scenario

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Reporter 向 stdout 输出进度行，与日志格式无关
type Reporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewReporter 创建进度输出；w 为 nil 时丢弃输出
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = io.Discard
	}
	return &Reporter{w: w}
}

// Step 输出一行进度
func (r *Reporter) Step(msg string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, msg)
}

// Stepf 格式化输出一行进度
func (r *Reporter) Stepf(format string, args ...any) {
	r.Step(fmt.Sprintf(format, args...))
}

// mask 只保留长度信息
func mask(secret string) string {
	if secret == "" {
		return "(empty)"
	}
	return strings.Repeat("*", len(secret))
}
