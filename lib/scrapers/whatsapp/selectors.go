package whatsapp

// All the DOM selectors in one place. WhatsApp Web ships obfuscated,
// versioned class names, so when scraping breaks this is the file to
// update against the live site.
const (
	BaseURL = "https://web.whatsapp.com/"

	// open a conversation directly from a phone number
	sendByPhoneURL = "https://web.whatsapp.com/send?phone=%s&text&type=phone_number&app_absent=1"

	selChatListPane = `#pane-side`
	selChatList     = `div[aria-label="Chat list"]`
	selListItem     = `div[role="listitem"]`

	// the login QR code, its data-ref refreshes while unscanned
	selQRCode = `div[data-ref]`

	selSearchBox      = `#side div[contenteditable='true'][role='textbox'][data-lexical-editor='true']`
	selSearchResults  = `div[aria-label="Search results."]`
	selChatHeaderName = `#main header span[dir="auto"]`

	selMain       = `#main`
	selMessageRow = `div[role="row"]`
	selComposer   = `#main footer div[contenteditable='true'][role='textbox']`

	selMenuButton = `div[role="button"][title="Menu"][aria-label="Menu"][data-tab="2"]`
	selLogoutItem = `div[role="button"][aria-label="Log out"]`

	// message row internals
	selMessageText    = `span.selectable-text.copyable-text`
	selMessageMeta    = `div.copyable-text`
	selSenderFallback = `span._ahxt`
	selTimeFallback   = `span.x1rg5ohu.x16dsc37`
	selOutgoing       = `div.message-out`

	selAttachment     = `div[title^="Download"]`
	selAttachmentName = `span.selectable-text`
	selAttachmentKind = `span[title="PDF"], span[title="Image"], span[title="Document"]`
	selAttachmentSize = `span[title*="kB"], span[title*="MB"]`
	selAttachmentPage = `span[title*="pages"]`

	// side pane row internals
	selChatRowName    = `div._ak8q span[dir="auto"]`
	selChatRowTime    = `div._ak8i`
	selChatRowPreview = `div._ak8k span span`
	selChatRowUnread  = `span[aria-label*="unread"]`
)
