package integration

// Shared fixtures for integration tests
const (
	TestAccountEmail    = "dancer@example.com"
	TestAccountHandle   = "dancer"
	TestAccountPassword = "correct-horse-battery"

	SecondAccountEmail    = "rival@example.com"
	SecondAccountHandle   = "rival"
	SecondAccountPassword = "another-fine-password"

	TestPlatform         = "telegram"
	TestPlatformUsername = "dancer99"

	TestSponsorTier        = "gold"
	TestSponsorAmountCents = int64(50000)
)
