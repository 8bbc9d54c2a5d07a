package formats

import (
	"fmt"
	"regexp"
)

const (
	// SignerIDFormat is a regex for the format IDs must follow
	SignerIDFormat = `^[a-zA-Z0-9-_]{1,64}$`

	// PassTypeIDFormat is the reverse DNS format of pass type identifiers
	PassTypeIDFormat = `^pass(\.[a-zA-Z0-9-]+)+$`

	// TeamIDFormat is the format of the team identifier of a developer account
	TeamIDFormat = `^[A-Z0-9]{10}$`
)

var (
	signerIDRe   = regexp.MustCompile(SignerIDFormat)
	passTypeIDRe = regexp.MustCompile(PassTypeIDFormat)
	teamIDRe     = regexp.MustCompile(TeamIDFormat)
)

// ValidateSignerID checks that a SignerID matches ^[a-zA-Z0-9-_]{1,64}$
func ValidateSignerID(signerID string) error {
	if !signerIDRe.MatchString(signerID) {
		return fmt.Errorf("signer ID %q does not match the permitted format %q",
			signerID, SignerIDFormat)
	}
	return nil
}

// ValidatePassIdentity checks the pass type and team identifiers a
// signer stamps on its passes. Wallet rejects passes whose identifiers
// differ from the ones of the signing certificate, so malformed values
// are refused at startup.
func ValidatePassIdentity(passTypeID, teamID string) error {
	if len(passTypeID) > 255 || !passTypeIDRe.MatchString(passTypeID) {
		return fmt.Errorf("pass type identifier %q does not match the permitted format %q",
			passTypeID, PassTypeIDFormat)
	}
	if !teamIDRe.MatchString(teamID) {
		return fmt.Errorf("team identifier %q does not match the permitted format %q",
			teamID, TeamIDFormat)
	}
	return nil
}
