package d2d

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/foldlink/foldlink/internal/wire/tlv"
)

// LoginRequest authenticates the connection's account.
type LoginRequest struct {
	RequestBase
	Username string
	Password string
}

func (m *LoginRequest) WireName() string     { return "LoginRequest" }
func (m *LoginRequest) NodeEvent() NodeEvent { return EventLogin }

func (m *LoginRequest) Fields() ([]tlv.Field, error) {
	fields := m.baseFields()
	if m.Username != "" {
		fields = append(fields, tlv.NewString(FieldUsername, m.Username))
	}
	if m.Password != "" {
		fields = append(fields, tlv.NewString(FieldPassword, m.Password))
	}
	return fields, nil
}

func (m *LoginRequest) ApplyFields(fields []tlv.Field) error {
	m.applyBase(fields)
	m.Username = stringField(fields, FieldUsername)
	m.Password = stringField(fields, FieldPassword)
	return nil
}

func (m *LoginRequest) Validate() error {
	if err := m.validateBase(m.WireName()); err != nil {
		return err
	}
	if strings.TrimSpace(m.Username) == "" {
		return ValidationError{WireName: m.WireName(), Field: "username", Reason: "missing"}
	}
	if m.Password == "" {
		return ValidationError{WireName: m.WireName(), Field: "password", Reason: "missing"}
	}
	return nil
}

// LoginReply carries the authenticated account on success.
type LoginReply struct {
	ReplyBase
	Account *AccountInfo
}

func (m *LoginReply) WireName() string { return "LoginReply" }

func (m *LoginReply) Fields() ([]tlv.Field, error) {
	fields := m.baseFields()
	if m.Account != nil {
		fields = append(fields, tlv.NewBytes(FieldAccountInfo, MarshalAccountInfo(*m.Account)))
	}
	return fields, nil
}

func (m *LoginReply) ApplyFields(fields []tlv.Field) error {
	m.applyBase(fields)
	m.Account = accountInfoField(fields, m.WireName())
	return nil
}

// AccountInfoRequest fetches an account projection. An absent account id
// means the caller's own account.
type AccountInfoRequest struct {
	RequestBase
	AccountID string
}

func (m *AccountInfoRequest) WireName() string     { return "AccountInfoRequest" }
func (m *AccountInfoRequest) NodeEvent() NodeEvent { return EventAccountInfo }

func (m *AccountInfoRequest) Fields() ([]tlv.Field, error) {
	fields := m.baseFields()
	if m.AccountID != "" {
		fields = append(fields, tlv.NewString(FieldAccountID, m.AccountID))
	}
	return fields, nil
}

func (m *AccountInfoRequest) ApplyFields(fields []tlv.Field) error {
	m.applyBase(fields)
	m.AccountID = stringField(fields, FieldAccountID)
	return nil
}

func (m *AccountInfoRequest) Validate() error {
	return m.validateBase(m.WireName())
}

// AccountInfoReply carries the requested account, absent on NOT_FOUND.
type AccountInfoReply struct {
	ReplyBase
	Account *AccountInfo
}

func (m *AccountInfoReply) WireName() string { return "AccountInfoReply" }

func (m *AccountInfoReply) Fields() ([]tlv.Field, error) {
	fields := m.baseFields()
	if m.Account != nil {
		fields = append(fields, tlv.NewBytes(FieldAccountInfo, MarshalAccountInfo(*m.Account)))
	}
	return fields, nil
}

func (m *AccountInfoReply) ApplyFields(fields []tlv.Field) error {
	m.applyBase(fields)
	m.Account = accountInfoField(fields, m.WireName())
	return nil
}

func accountInfoField(fields []tlv.Field, wireName string) *AccountInfo {
	f, ok := tlv.Get(fields, FieldAccountInfo)
	if !ok {
		return nil
	}
	ai, err := UnmarshalAccountInfo(f.Value)
	if err != nil {
		log.Debug().Err(err).Str("message", wireName).Msg("d2d: account info undecodable")
		return nil
	}
	return &ai
}
