package model

// SessionFile represents the .cws file structure.
// PublicKey is stored in clear so the owner can be shown without the password.
type SessionFile struct {
	Version    int    `json:"version"`
	PublicKey  string `json:"publicKey,omitempty"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipherText"`
}

// DappKeyPair is the base64 encoded box key pair of this app
type DappKeyPair struct {
	PublicKey string `json:"publicKey"`
	SecretKey string `json:"secretKey"`
}

// WalletSession is the persisted form of a connected wallet session
type WalletSession struct {
	PublicKey    string      `json:"publicKey"`
	Session      string      `json:"session"`
	SharedSecret string      `json:"sharedSecret"` // base64
	DappKeyPair  DappKeyPair `json:"dappKeyPair"`
}

// User is the signed-in radio member
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Avatar   string `json:"avatar,omitempty"`
}

// AuthSession is the application's persisted auth blob.
// The wallet session rides along so signing works after a restart.
type AuthSession struct {
	Token         string         `json:"token"`
	User          User           `json:"user"`
	Time          string         `json:"time"`
	WalletSession *WalletSession `json:"walletSession,omitempty"`
}

// PhantomAuthRequest represents request for POST /auth/phantom
type PhantomAuthRequest struct {
	PublicKey string `json:"publicKey"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// PhantomAuthResponse represents response for POST /auth/phantom
type PhantomAuthResponse struct {
	Session *AuthSession `json:"session"`
}
