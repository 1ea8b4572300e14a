package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Chain access
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeBlockNotFound            Code = "BLOCK_NOT_FOUND"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeReserveCountMismatch     Code = "RESERVE_COUNT_MISMATCH"
	CodeInvalidKey               Code = "INVALID_KEY"
)

// Market pricing and call building
const (
	CodeUnknownToken          Code = "UNKNOWN_TOKEN"
	CodeReservesNotLoaded     Code = "RESERVES_NOT_LOADED"
	CodeInvalidAmount         Code = "INVALID_AMOUNT"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodeSwapEncodingFailed    Code = "SWAP_ENCODING_FAILED"
	CodeRouteUnsupported      Code = "ROUTE_UNSUPPORTED"
	CodePairCacheError        Code = "PAIR_CACHE_ERROR"
)

// Bundle execution
const (
	CodeGasEstimationFailed     Code = "GAS_ESTIMATION_FAILED"
	CodeGasLimitExceeded        Code = "GAS_LIMIT_EXCEEDED"
	CodeTransactionBuildFailed  Code = "TRANSACTION_BUILD_FAILED"
	CodeBundleSigningFailed     Code = "BUNDLE_SIGNING_FAILED"
	CodeBundleSimulationFailed  Code = "BUNDLE_SIMULATION_FAILED"
	CodeBundleReverted          Code = "BUNDLE_REVERTED"
	CodeBundleSubmissionFailed  Code = "BUNDLE_SUBMISSION_FAILED"
	CodeRelayRPCError           Code = "RELAY_RPC_ERROR"
	CodeInvalidMinerRewardShare Code = "INVALID_MINER_REWARD_SHARE"
)

// Circuit breaker
const (
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
