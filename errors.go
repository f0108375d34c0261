package massa

import (
	"github.com/lareeq/massa/internal/mproto"
	"github.com/lareeq/massa/internal/mproto/mbootstrap/mbsclient"
	"github.com/lareeq/massa/mcodec"
	"github.com/lareeq/massa/mcrypto"
)

// Sentinel errors for matching the failures of a bootstrap with [errors.Is].
// The errors returned from [*Client.Bootstrap] and [*Server.Serve]
// wrap typed errors carrying more detail.
var (
	// A message or frame did not decode.
	ErrMalformedVarint = mcodec.ErrMalformedVarint
	ErrTruncatedBuffer = mcodec.ErrTruncatedBuffer
	ErrLimitExceeded   = mcodec.ErrLimitExceeded

	// A message carried a type tag outside the registry.
	ErrUnknownMessageType = mproto.ErrUnknownMessageType

	// A message arrived out of order.
	ErrUnexpectedVariant = mproto.ErrUnexpectedVariant

	// A signature did not verify against the bootstrap key.
	ErrSignatureInvalid = mcrypto.ErrSignatureInvalid

	// The verified server time was too far from the local clock.
	ErrClockSkew = mbsclient.ErrClockSkew
)
