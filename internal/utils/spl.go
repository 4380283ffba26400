package utils

import (
	"bytes"

	"arb-indexer-sol/internal/consts"
)

// IsSPLToken 判断 programId 是否为标准 SPL Token 程序（TokenProgram / Token2022）。
// Geyser 推送中的 programId 为原始 32 字节。
func IsSPLToken(programID []byte) bool {
	return bytes.Equal(programID, consts.TokenProgram[:]) ||
		bytes.Equal(programID, consts.TokenProgram2022[:])
}

// IsSPLTokenStr 是 base58 字符串版本，用于 JSON-RPC 返回的 programId 字段。
func IsSPLTokenStr(programID string) bool {
	return programID == consts.TokenProgramStr || programID == consts.TokenProgram2022Str
}
