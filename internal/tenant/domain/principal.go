package domain

// EngineSubject identifies the compute engine calling back server-to-server.
const EngineSubject = "engine"

// Principal is the authenticated caller of an operation. A user principal
// carries the token subject; the engine principal carries no user session
// and resolves its tenant through the target offer.
type Principal struct {
	Subject string
	Engine  bool
}

func UserPrincipal(subject string) Principal {
	return Principal{Subject: subject}
}

func EnginePrincipal() Principal {
	return Principal{Subject: EngineSubject, Engine: true}
}
