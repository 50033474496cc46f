package dto

// EnrollRequest 课程报名请求
type EnrollRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Course  string `json:"course"`
	Message string `json:"message"`
}
