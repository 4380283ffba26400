package rpc

// JSON-RPC 请求/响应结构。getBlock 使用 transactionDetails=accounts 档位，
// 其交易结构与完整档位不同：accountKeys 为带 pubkey 的对象数组。

type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type getBlocksResponse struct {
	Result []uint64  `json:"result"`
	Error  *rpcError `json:"error"`
}

type getBlockResponse struct {
	Result *Block    `json:"result"`
	Error  *rpcError `json:"error"`
}

// Block 表示 getBlock 返回的区块数据（accounts 档位）。
type Block struct {
	Blockhash    string             `json:"blockhash"`
	ParentSlot   uint64             `json:"parentSlot"`
	BlockTime    int64              `json:"blockTime"`
	BlockHeight  uint64             `json:"blockHeight"`
	Transactions []BlockTransaction `json:"transactions"`
}

type BlockTransaction struct {
	Transaction TransactionAccounts `json:"transaction"`
	Meta        *TransactionMeta    `json:"meta"`
}

type TransactionAccounts struct {
	AccountKeys []AccountKey `json:"accountKeys"`
	Signatures  []string     `json:"signatures"`
}

type AccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
	Source   string `json:"source"`
}

type TransactionMeta struct {
	Err               any            `json:"err"`
	Fee               uint64         `json:"fee"`
	PreTokenBalances  []TokenBalance `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance `json:"postTokenBalances"`
}

type TokenBalance struct {
	AccountIndex  int           `json:"accountIndex"`
	Mint          string        `json:"mint"`
	Owner         string        `json:"owner"`
	ProgramID     string        `json:"programId"`
	UITokenAmount UITokenAmount `json:"uiTokenAmount"`
}

type UITokenAmount struct {
	Amount   string `json:"amount"` // 最小单位整数字符串，可能为空
	Decimals uint8  `json:"decimals"`
}
