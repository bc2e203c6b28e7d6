package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrUsernameTaken      ErrCode = "USERNAME_TAKEN"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrAdminAccessOnly ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrInvalidAnswer  ErrCode = "INVALID_CORRECT_ANSWER"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrConflict        ErrCode = "CONFLICT"
	ErrActionForbidden ErrCode = "ACTION_FORBIDDEN"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrNotEnoughQuestions ErrCode = "NOT_ENOUGH_QUESTIONS"
	ErrNoActiveExam       ErrCode = "NO_ACTIVE_EXAM"
	ErrExamNotActive      ErrCode = "EXAM_NOT_ACTIVE"
	ErrUnknownOption      ErrCode = "UNKNOWN_OPTION"
	ErrSubmitFailed       ErrCode = "SUBMIT_FAILED"
	ErrExamAbandoned      ErrCode = "EXAM_ABANDONED"

	// ─── Suggestions ───────────────────────────────────────────────────
	ErrSuggestionReviewed ErrCode = "SUGGESTION_ALREADY_REVIEWED"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal           ErrCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrCode = "SERVICE_UNAVAILABLE"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Sai tên đăng nhập hoặc mật khẩu."
	case ErrSessionInvalidated:
		return "Phiên đăng nhập đã kết thúc. Vui lòng đăng nhập lại."
	case ErrTokenRequired:
		return "Cần token xác thực."
	case ErrTokenInvalid:
		return "Token xác thực không hợp lệ hoặc đã hết hạn."
	case ErrUsernameTaken:
		return "Tên đăng nhập đã tồn tại."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Bạn không có quyền truy cập tài nguyên này."
	case ErrAdminAccessOnly:
		return "Chức năng này chỉ dành cho quản trị viên."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Dữ liệu không hợp lệ. Vui lòng kiểm tra lại."
	case ErrInvalidID:
		return "Định dạng ID không hợp lệ."
	case ErrInvalidPayload:
		return "Nội dung yêu cầu không hợp lệ."
	case ErrInvalidAnswer:
		return "Đáp án đúng phải là một trong các lựa chọn của câu hỏi."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Không tìm thấy tài nguyên."
	case ErrConflict:
		return "Tài nguyên đã tồn tại."
	case ErrActionForbidden:
		return "Thao tác này không được phép."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrNotEnoughQuestions:
		return "Chưa đủ câu hỏi trong hệ thống để tạo bài thi. Vui lòng liên hệ quản trị viên."
	case ErrNoActiveExam:
		return "Bạn không có bài thi nào đang diễn ra."
	case ErrExamNotActive:
		return "Bài thi không còn nhận câu trả lời."
	case ErrUnknownOption:
		return "Lựa chọn không thuộc câu hỏi này."
	case ErrSubmitFailed:
		return "Có lỗi xảy ra khi nộp bài thi. Vui lòng thử nộp lại."
	case ErrExamAbandoned:
		return "Bài thi đã bị hủy."

	// ─── Suggestions ───────────────────────────────────────────────────
	case ErrSuggestionReviewed:
		return "Câu hỏi đề xuất này đã được xử lý."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "Vui lòng chọn tệp để tải lên."
	case ErrUnsupportedFile:
		return "Định dạng tệp không được hỗ trợ."
	case ErrFileTooLarge:
		return "Kích thước tệp vượt quá giới hạn."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Quá nhiều yêu cầu. Vui lòng thử lại sau."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Đã xảy ra lỗi máy chủ."
	case ErrServiceUnavailable:
		return "Dịch vụ tạm thời không khả dụng."
	default:
		return "Đã xảy ra lỗi không mong muốn."
	}
}
