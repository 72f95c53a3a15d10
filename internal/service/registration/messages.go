package registration

const (
	MsgStart = "Hey! Type !whitelist or /whitelist to add your Solana wallet (1 per user, editable).\n" +
		"Use /mywallet to check or /editwallet to update."
	MsgAlreadyRegistered = "You already have a wallet: `%s`. Use /editwallet to change it."
	MsgPromptAddress     = "Send your Solana wallet address (base58, 32–44 chars):"
	MsgInvalidAddress    = "❌ Invalid Solana address. Must be 32–44 base58 characters. Try again or /cancel."
	MsgAdded             = "✅ Added to whitelist!"
	MsgEditPrompt        = "Current: `%s`\nSend new Solana address or /cancel."
	MsgNoCurrent         = "none"
	MsgYourWallet        = "Your wallet: `%s`"
	MsgNoWallet          = "No wallet on record. Type !whitelist to add one."
	MsgCancelled         = "Cancelled."
	MsgNothingToCancel   = "Nothing to cancel."
	MsgStorageFailure    = "⚠️ Something went wrong saving your wallet. Please send it again or /cancel."
	MsgLookupFailure     = "⚠️ Could not read the whitelist right now. Please try again later."
)
