package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeBlockNotFound:            "Block not found",
	CodeContractCallFailed:       "Smart contract call failed",
	CodeReserveCountMismatch:     "Reserve batch does not match requested markets",
	CodeInvalidKey:               "Invalid private key",

	CodeUnknownToken:          "Token is not traded by this market",
	CodeReservesNotLoaded:     "Market reserves have not been synchronized",
	CodeInvalidAmount:         "Amount must be positive",
	CodeInsufficientLiquidity: "Insufficient liquidity for requested amount",
	CodeSwapEncodingFailed:    "Failed to encode swap call",
	CodeRouteUnsupported:      "Next market cannot receive tokens directly",
	CodePairCacheError:        "Pair cache error",

	CodeGasEstimationFailed:     "Gas estimation failed",
	CodeGasLimitExceeded:        "Estimated gas exceeds ceiling",
	CodeTransactionBuildFailed:  "Failed to build transaction",
	CodeBundleSigningFailed:     "Failed to sign bundle",
	CodeBundleSimulationFailed:  "Bundle simulation failed",
	CodeBundleReverted:          "Bundle simulation reverted",
	CodeBundleSubmissionFailed:  "Bundle submission failed",
	CodeRelayRPCError:           "Relay returned an error",
	CodeInvalidMinerRewardShare: "Miner reward percentage must be within [0, 100]",

	CodeCircuitOpen: "Circuit breaker is open",
}
