package orchestrator

import (
	"context"
	"errors"
	"net"
	"strings"
)

const genericErrorMessage = "Xin lỗi, đã có lỗi xảy ra khi xử lý câu hỏi của bạn. Vui lòng thử lại sau."

const connectivityErrorMessage = `Không thể kết nối tới nguồn dữ liệu. Vui lòng kiểm tra:
- Dịch vụ cơ sở tri thức (graph database) có đang chạy không
- Dịch vụ mô hình ngôn ngữ có đang chạy không
Sau đó thử lại câu hỏi.`

// Substrings that mark a transport-level failure from any backend.
var connectivityMarkers = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"i/o timeout",
	"network is unreachable",
	"broken pipe",
	"connectivity",
	"unable to connect",
	"not running",
}

// diagnose classifies a pipeline error into user-facing remediation text.
// Connectivity failures get actionable hints; everything else gets the
// generic message. The raw error never reaches the user.
func diagnose(err error) string {
	if err == nil {
		return genericErrorMessage
	}
	if isConnectivity(err) {
		return connectivityErrorMessage
	}
	return genericErrorMessage
}

func isConnectivity(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range connectivityMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
