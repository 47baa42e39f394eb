package client

import (
	"encoding/json"
	"fmt"
)

const defaultRequestID = 1

// Request json rpc request
type Request struct {
	Method  string
	Params  interface{}
	Timeout int
	ID      int
	Headers map[string]string
}

// NewRequest new json rpc request
func NewRequest(method string, params ...interface{}) *Request {
	return &Request{
		Method:  method,
		Params:  params,
		Timeout: defaultTimeout,
		ID:      defaultRequestID,
	}
}

// RequestBody json rpc request body
type RequestBody struct {
	Version string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int         `json:"id"`
}

// JSONError json rpc error object
type JSONError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (err *JSONError) Error() string {
	return fmt.Sprintf("json-rpc error %d, %s", err.Code, err.Message)
}

type jsonrpcResponse struct {
	Version string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Error   *JSONError      `json:"error,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// RPCPost call json rpc method
func RPCPost(result interface{}, url, method string, params ...interface{}) error {
	return RPCPostRequest(url, NewRequest(method, params...), result)
}

// RPCPostRequest call json rpc request
func RPCPostRequest(url string, req *Request, result interface{}) error {
	reqBody := &RequestBody{
		Version: "2.0",
		Method:  req.Method,
		Params:  req.Params,
		ID:      req.ID,
	}
	resp, err := HTTPPost(url, reqBody, nil, req.Headers, req.Timeout)
	if err != nil {
		return err
	}
	body, err := readBody(resp)
	if err != nil {
		return err
	}
	var jsonResp jsonrpcResponse
	if err = json.Unmarshal(body, &jsonResp); err != nil {
		return fmt.Errorf("unmarshal body error: %w", err)
	}
	if jsonResp.Error != nil {
		return jsonResp.Error
	}
	if err = json.Unmarshal(jsonResp.Result, result); err != nil {
		return fmt.Errorf("unmarshal result error: %w", err)
	}
	return nil
}

// PostJSON post json body and decode json result
func PostJSON(result interface{}, url string, body interface{}, headers map[string]string, timeout int) error {
	resp, err := HTTPPost(url, body, nil, headers, timeout)
	if err != nil {
		return fmt.Errorf("POST request error: %w (url: %v)", err, url)
	}
	respBody, err := readBody(resp)
	if err != nil {
		return err
	}
	if result == nil || len(respBody) == 0 {
		return nil
	}
	if err = json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshal result error: %w", err)
	}
	return nil
}
