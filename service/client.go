package service

type CmdType int

const (
	Read CmdType = iota
	String
	Status
)

func (c CmdType) String() string {
	switch c {
	case Read:
		return "read"
	case String:
		return "str"
	case Status:
		return "status"
	default:
		return "unknown"
	}
}

type Client interface {
	SendExpr(exprType CmdType, args string) (string, error)
	IsDolphinmemServer() bool
}
