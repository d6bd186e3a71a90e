package schemas

// Canonical vulnerability category names. The screener, the semantic
// analyzer prompt, and the scoring profiles all key off these strings, so
// findings from both origins can be matched by category.
const (
	CategorySQLInjection     = "SQL Injection"
	CategoryCommandInjection = "Command Injection"
	CategoryBufferOverflow   = "Buffer Overflow"
	CategoryXSS              = "XSS"
	CategoryPathTraversal    = "Path Traversal"
	CategoryCodeInjection    = "Code Injection"
	CategoryFormatString     = "Format String"
	CategoryHardcodedSecret  = "Hardcoded Secret"
	CategoryWeakCrypto       = "Weak Cryptography"
	CategoryInsecureDeserial = "Insecure Deserialization"
)

// KnownCategories lists every canonical category in a stable order.
var KnownCategories = []string{
	CategorySQLInjection,
	CategoryCommandInjection,
	CategoryBufferOverflow,
	CategoryXSS,
	CategoryPathTraversal,
	CategoryCodeInjection,
	CategoryFormatString,
	CategoryHardcodedSecret,
	CategoryWeakCrypto,
	CategoryInsecureDeserial,
}
