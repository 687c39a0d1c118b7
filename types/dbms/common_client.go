package dbms

import (
	"github.com/r-che/cadfael/common/log"
)

// Fields and methods common to all clients
type CommonClient struct {
	Backend		string
	Cfg			*DBConfig	// database configuration (auth, connection, etc...)

	// Runtime configured values
	ReadOnly	bool
}

func NewCommonClient(backend string, dbCfg *DBConfig) *CommonClient {
	return &CommonClient{
		Backend:	backend,
		Cfg:		dbCfg,
		ReadOnly:	dbCfg.ReadOnly,
	}
}

func (cc *CommonClient) SetReadOnly(ro bool) {
	log.W("(%sCli:SetReadOnly) Set database read-only flag to: %v", cc.Backend, ro)
	cc.ReadOnly = ro
}

// SkipWrite returns true and logs the operation if the client is in read-only mode
func (cc *CommonClient) SkipWrite(op string, args ...any) bool {
	if !cc.ReadOnly {
		return false
	}

	log.W("(%sCli) R/O mode IS SET, will not be performed: " + op, append([]any{cc.Backend}, args...)...)

	return true
}
