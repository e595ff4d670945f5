// Package pixpayment validates the signed payment document a dynamic PIX QR
// code resolves to (C7): the JSON body embedded in the JWS payload fetched
// by the loader, cast into a PixPayment once every field check passes.
package pixpayment

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Status is the lifecycle state of a PIX charge ("cobrança").
type Status string

const (
	StatusAtiva                       Status = "ATIVA"
	StatusConcluida                   Status = "CONCLUIDA"
	StatusRemovidaPeloUsuarioRecebedor Status = "REMOVIDA_PELO_USUARIO_RECEBEDOR"
	StatusRemovidaPeloPSP              Status = "REMOVIDA_PELO_PSP"
)

// Calendario carries the charge's creation/presentation timestamps and
// expiration window.
type Calendario struct {
	Criacao      string
	Apresentacao string
	Expiracao    int
}

// Devedor is the debtor ("devedor"): a name plus exactly one of a CPF or
// CNPJ taxpayer ID.
type Devedor struct {
	Nome string
	CPF  string
	CNPJ string
}

// Valor carries the charge's original amount, a positive decimal string.
type Valor struct {
	Original string
}

// InfoAdicional is a free-form name/value pair attached to the charge.
type InfoAdicional struct {
	Nome  string
	Valor string
}

// PixPayment is the schema-validated payment document signed by the PSP.
type PixPayment struct {
	Revisao            int
	Chave              string
	TxID               string
	Status             Status
	SolicitacaoPagador string
	Calendario         Calendario
	Devedor            *Devedor
	Valor              Valor
	InfoAdicionais     []InfoAdicional
}

type rawPayment struct {
	Revisao            *int               `json:"revisao"`
	Chave              string             `json:"chave"`
	TxID               string             `json:"txid"`
	Status             string             `json:"status"`
	SolicitacaoPagador string             `json:"solicitacaoPagador"`
	Calendario         rawCalendario      `json:"calendario"`
	Devedor            *rawDevedor        `json:"devedor"`
	Valor              rawValor           `json:"valor"`
	InfoAdicionais     []rawInfoAdicional `json:"infoAdicionais"`
}

type rawCalendario struct {
	Criacao      string `json:"criacao"`
	Apresentacao string `json:"apresentacao"`
	Expiracao    *int   `json:"expiracao"`
}

type rawDevedor struct {
	Nome string `json:"nome"`
	CPF  string `json:"cpf"`
	CNPJ string `json:"cnpj"`
}

type rawValor struct {
	Original string `json:"original"`
}

type rawInfoAdicional struct {
	Nome  string `json:"nome"`
	Valor string `json:"valor"`
}

// Parse decodes and schema-validates a PIX payment JSON payload (C7).
//
// encoding/json already decodes an explicit JSON null for a slice field as
// nil rather than erroring, which is exactly the coercion the upstream
// "infoAdicionais: null" quirk requires; Parse only needs to turn that nil
// into an empty (non-nil) slice on the way out.
func Parse(body []byte) (*PixPayment, error) {
	var raw rawPayment
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("pixpayment: decoding payload: %w", err)
	}
	return validate(&raw)
}

func validate(raw *rawPayment) (*PixPayment, error) {
	var errs []FieldError
	add := func(field, msg string) { errs = append(errs, FieldError{Field: field, Message: msg}) }

	if raw.Revisao == nil {
		add("revisao", "is required")
	} else if *raw.Revisao < 0 {
		add("revisao", "must be >= 0")
	}

	if raw.Chave == "" {
		add("chave", "is required")
	}

	if l := len(raw.TxID); l < 26 || l > 35 {
		add("txid", "must be 26..35 characters")
	}

	status := Status(raw.Status)
	switch status {
	case StatusAtiva, StatusConcluida, StatusRemovidaPeloUsuarioRecebedor, StatusRemovidaPeloPSP:
	default:
		add("status", "must be one of ATIVA, CONCLUIDA, REMOVIDA_PELO_USUARIO_RECEBEDOR, REMOVIDA_PELO_PSP")
	}

	if len(raw.SolicitacaoPagador) > 140 {
		add("solicitacaoPagador", "must be at most 140 characters")
	}

	if raw.Calendario.Criacao == "" {
		add("calendario.criacao", "is required")
	}
	if raw.Calendario.Apresentacao == "" {
		add("calendario.apresentacao", "is required")
	}
	expiracao := 86400
	if raw.Calendario.Expiracao != nil {
		expiracao = *raw.Calendario.Expiracao
	}

	var devedor *Devedor
	if raw.Devedor != nil {
		hasCPF := raw.Devedor.CPF != ""
		hasCNPJ := raw.Devedor.CNPJ != ""
		switch {
		case hasCPF && hasCNPJ, !hasCPF && !hasCNPJ:
			add("devedor", "exactly one of cpf or cnpj must be present")
		case hasCPF:
			if !ValidCPF(raw.Devedor.CPF) {
				add("devedor.cpf", "fails check-digit validation")
			}
		case hasCNPJ:
			if !ValidCNPJ(raw.Devedor.CNPJ) {
				add("devedor.cnpj", "fails check-digit validation")
			}
		}
		devedor = &Devedor{Nome: raw.Devedor.Nome, CPF: raw.Devedor.CPF, CNPJ: raw.Devedor.CNPJ}
	}

	if amount, err := strconv.ParseFloat(raw.Valor.Original, 64); err != nil || amount <= 0 {
		add("valor.original", "must be a decimal greater than 0")
	}

	if len(errs) > 0 {
		return nil, newValidationError(errs)
	}

	infoAdicionais := make([]InfoAdicional, 0, len(raw.InfoAdicionais))
	for _, ia := range raw.InfoAdicionais {
		infoAdicionais = append(infoAdicionais, InfoAdicional{Nome: ia.Nome, Valor: ia.Valor})
	}

	return &PixPayment{
		Revisao:            *raw.Revisao,
		Chave:              raw.Chave,
		TxID:               raw.TxID,
		Status:             status,
		SolicitacaoPagador: raw.SolicitacaoPagador,
		Calendario: Calendario{
			Criacao:      raw.Calendario.Criacao,
			Apresentacao: raw.Calendario.Apresentacao,
			Expiracao:    expiracao,
		},
		Devedor:        devedor,
		Valor:          Valor{Original: raw.Valor.Original},
		InfoAdicionais: infoAdicionais,
	}, nil
}
