package consts

import "arb-indexer-sol/internal/types"

// Base58 地址常量（可读性高，适合配置与日志使用）
const (
	// Programs
	SystemProgramStr    = "11111111111111111111111111111111"
	TokenProgramStr     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	TokenProgram2022Str = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"

	// USD 计价基础报价币（具有稳定市场价格）
	WSOLMintStr = "So11111111111111111111111111111111111111112"
	USDCMintStr = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMintStr = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

var (
	// 原生 SOL（非 SPL），用零值地址表示
	NativeSOLMint = types.Pubkey{}

	// Programs
	SystemProgram    = types.PubkeyFromBase58(SystemProgramStr)
	TokenProgram     = types.PubkeyFromBase58(TokenProgramStr)
	TokenProgram2022 = types.PubkeyFromBase58(TokenProgram2022Str)

	// 稳定报价币（USD 估值）
	WSOLMint = types.PubkeyFromBase58(WSOLMintStr)
	USDCMint = types.PubkeyFromBase58(USDCMintStr)
	USDTMint = types.PubkeyFromBase58(USDTMintStr)

	// USDQuoteMints 表示具有稳定美元价格参考的常用报价币，用于套利收益估值。
	USDQuoteMints = []types.Pubkey{WSOLMint, USDCMint, USDTMint}

	// GrpcAccountInclude 用于 Geyser gRPC 区块订阅过滤器：
	// 只要交易涉及这些程序之一即会被推送，覆盖全部 SPL Token 余额变动。
	GrpcAccountInclude = []string{
		SystemProgramStr,
		TokenProgramStr,
		TokenProgram2022Str,
	}
)
