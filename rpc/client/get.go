package client

import (
	"encoding/json"
	"fmt"
)

// RPCGetRequest get json result from url with params and headers
func RPCGetRequest(result interface{}, url string, params, headers map[string]string, timeout int) error {
	resp, err := HTTPGet(url, params, headers, timeout)
	if err != nil {
		return fmt.Errorf("GET request error: %w (url: %v, params: %v)", err, url, params)
	}
	body, err := readBody(resp)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal result error: %w", err)
	}
	return nil
}
