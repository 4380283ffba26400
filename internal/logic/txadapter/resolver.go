package txadapter

import (
	"arb-indexer-sol/internal/consts"
	"arb-indexer-sol/internal/types"
)

// addrKV 表示缓存中的一个条目：base58 字符串 → 解码后的公钥。
type addrKV struct {
	base58 string
	pubkey types.Pubkey
}

// addrResolver 将 base58 编码的地址（owner / mint）解析为 Pubkey，并缓存解码结果。
// 单笔交易内同一地址通常出现多次（pre/post 两侧），线性扫描的小缓存
// 在这种规模下比 map 更快，且零哈希开销。
type addrResolver struct {
	cache []addrKV
}

// 参数 capacity 为预估的地址数量，用于预分配缓存容量。
func newAddrResolver(capacity int) *addrResolver {
	return &addrResolver{cache: make([]addrKV, 0, capacity)}
}

// resolve 返回指定 base58 地址对应的 Pubkey。
// 常见报价币走快路径，其余命中缓存则直接返回，否则解码并缓存。
// 解码失败返回错误，由调用方决定整笔交易是否作废。
func (r *addrResolver) resolve(base58Str string) (types.Pubkey, error) {
	switch base58Str {
	case consts.WSOLMintStr:
		return consts.WSOLMint, nil
	case consts.USDCMintStr:
		return consts.USDCMint, nil
	case consts.USDTMintStr:
		return consts.USDTMint, nil
	}
	for _, kv := range r.cache {
		if kv.base58 == base58Str {
			return kv.pubkey, nil
		}
	}
	pk, err := types.TryPubkeyFromBase58(base58Str)
	if err != nil {
		return types.Pubkey{}, err
	}
	r.cache = append(r.cache, addrKV{base58: base58Str, pubkey: pk})
	return pk, nil
}
