/**
 * 模型:响应模型
 * @author: sun977
 * @date: 2025.11.23
 * @description: API统一响应结构
 * @func: APIResponse及其构造函数
 */
package model

// APIResponse 通用API响应结构
type APIResponse struct {
	Code    int         `json:"code,omitempty"`  // 响应状态码，可选
	Status  string      `json:"status"`          // 响应状态："success" 或 "failed"
	Message string      `json:"message"`         // 响应消息
	Data    interface{} `json:"data,omitempty"`  // 响应数据，可选
	Error   string      `json:"error,omitempty"` // 错误信息，可选
}

// NewSuccessResponse 构造成功响应
func NewSuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	}
}

// NewErrorResponse 构造失败响应
func NewErrorResponse(code int, message string, err error) APIResponse {
	resp := APIResponse{
		Code:    code,
		Status:  "failed",
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
