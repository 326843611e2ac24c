// flags.go defines constants for all CLI flag names.
//
// Naming convention: Flag<PascalCaseName> where name matches the kebab-case
// CLI flag (e.g., "strict" -> FlagStrict).

package extension

// Flag name constants for CLI commands.
const (
	// Boolean flags

	FlagDisabled = "disabled" // Match disabled tags
	FlagLocal    = "local"    // Use local scope (gitignored)
	FlagLong     = "long"     // Long format output
	FlagRaw      = "raw"      // Raw output without formatting
	FlagStrict   = "strict"   // Compare tag names case-sensitively

	// String flags

	FlagAddr     = "addr"     // HTTP listen address
	FlagCategory = "category" // Category for created tags
	FlagContext  = "context"  // Tagging context, e.g. skills

	// Integer flags

	FlagLimit = "limit" // Limit number of results
)
