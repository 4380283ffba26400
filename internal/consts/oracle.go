package consts

const (
	// https://www.pyth.network/price-feeds/crypto-sol-usd
	PythSOLAccount = "H6ARHf6YXhGYeQfUzQNGk6rDNnLBQKrenN712K4AQJEG"

	// https://www.pyth.network/price-feeds/crypto-usdc-usd
	PythUSDCAccount = "Gnt27xtC473ZT2Mw5u8wZ68Z3gULkSTb5DuxJy7eJotD"

	// https://www.pyth.network/price-feeds/crypto-usdt-usd
	PythUSDTAccount = "3vxLXJqLqF3JG5TCbYycbKWRBbCJQLxQmBGCkyqEEefL"
)
