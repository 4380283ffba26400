// Package rpc 封装回填扫描所需的 Solana JSON-RPC 调用。
//
// 调用语义："保证"成功但不保证耗时 —— 被限流（429）时按服务端给出的
// Retry-After 等待后重试，且每轮额外固定等待 1 秒作为安全边际；
// 403 视为被封禁的永久失败信号，直接终止整次运行。
package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"arb-indexer-sol/pkg/logger"

	"github.com/sugawarayuuta/sonnet"
)

// ErrForbidden 表示服务端返回 403（通常意味着被永久封禁），不可重试。
var ErrForbidden = errors.New("rpc endpoint returned 403, permanently banned")

const retrySafetyMargin = time.Second

type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// call 执行单个 JSON-RPC 方法，限流时无限重试直至成功、永久失败或 ctx 取消。
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	body, err := sonnet.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	for {
		data, retryAfter, err := c.post(ctx, body)
		if err == nil {
			if err := sonnet.Unmarshal(data, out); err != nil {
				return fmt.Errorf("unmarshal %s response: %w", method, err)
			}
			return nil
		}
		if errors.Is(err, ErrForbidden) || ctx.Err() != nil {
			return err
		}

		if retryAfter > 0 {
			logger.Warnf("[rpc] %s 被限流，%v 后重试", method, retryAfter)
		} else {
			logger.Warnf("[rpc] %s 失败，稍后重试: %v", method, err)
		}
		if err := sleepCtx(ctx, retryAfter+retrySafetyMargin); err != nil {
			return err
		}
	}
}

// post 发送一次请求。返回限流时服务端建议的等待时长（可能为 0）。
func (c *Client) post(ctx context.Context, body []byte) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, 0, ErrForbidden
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, 0, err
		}
		return data, 0, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		var wait time.Duration
		if v := resp.Header.Get("Retry-After"); v != "" {
			if sec, err := strconv.Atoi(v); err == nil {
				wait = time.Duration(sec) * time.Second
			}
		}
		return nil, wait, fmt.Errorf("rate limited (429)")
	default:
		return nil, 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GetBlocks 返回 [beginSlot, endSlot] 区间内实际存在的 slot 列表（升序）。
func (c *Client) GetBlocks(ctx context.Context, beginSlot, endSlot uint64) ([]uint64, error) {
	var resp getBlocksResponse
	if err := c.call(ctx, "getBlocks", []any{beginSlot, endSlot}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getBlocks rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

// GetBlock 返回指定 slot 的区块数据。
// accounts 档位的交易详情足以支撑余额快照分析，且显著减小响应体。
func (c *Client) GetBlock(ctx context.Context, slot uint64) (*Block, error) {
	params := []any{
		slot,
		map[string]any{
			"encoding":                       "json",
			"maxSupportedTransactionVersion": 0,
			"transactionDetails":             "accounts",
			"rewards":                        false,
		},
	}
	var resp getBlockResponse
	if err := c.call(ctx, "getBlock", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getBlock(%d) rpc error %d: %s", slot, resp.Error.Code, resp.Error.Message)
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("getBlock(%d): empty result", slot)
	}
	return resp.Result, nil
}
