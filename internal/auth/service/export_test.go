package service

// DecoyHash exposes the hash unknown-email logins are checked against.
func (s *AuthService) DecoyHash() string { return s.decoyHash }
