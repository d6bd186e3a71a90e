package engine

import (
	"github.com/hexborne/vulndetective/api/schemas"
)

// categoryVectors maps each known category to the CVSS 3.1 base vector that
// describes its typical exploitation profile. Findings in categories the
// table does not know fall back to defaultVector, a moderate
// network-reachable profile.
var categoryVectors = map[string]string{
	schemas.CategorySQLInjection:     "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:L",
	schemas.CategoryCommandInjection: "CVSS:3.1/AV:N/AC:L/PR:L/UI:N/S:U/C:H/I:H/A:H",
	schemas.CategoryBufferOverflow:   "CVSS:3.1/AV:L/AC:L/PR:N/UI:R/S:U/C:H/I:H/A:H",
	schemas.CategoryXSS:              "CVSS:3.1/AV:N/AC:L/PR:N/UI:R/S:C/C:L/I:L/A:N",
	schemas.CategoryPathTraversal:    "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:N/A:N",
	schemas.CategoryCodeInjection:    "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H",
	schemas.CategoryFormatString:     "CVSS:3.1/AV:L/AC:L/PR:L/UI:N/S:U/C:H/I:H/A:H",
	schemas.CategoryHardcodedSecret:  "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:N/A:N",
	schemas.CategoryWeakCrypto:       "CVSS:3.1/AV:N/AC:H/PR:N/UI:N/S:U/C:H/I:N/A:N",
	schemas.CategoryInsecureDeserial: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H",
}

const defaultVector = "CVSS:3.1/AV:N/AC:L/PR:L/UI:N/S:U/C:L/I:L/A:N"

// vectorFor returns the scoring vector for a category.
func vectorFor(category string) string {
	if v, ok := categoryVectors[category]; ok {
		return v
	}
	return defaultVector
}
