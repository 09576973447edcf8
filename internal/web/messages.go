package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/trocaroupa/trocas/internal/model"
)

// notices are shown after a successful form submission, keyed by ?ok=.
var notices = map[string]string{
	"item-criado":      "Peça cadastrada.",
	"item-salvo":       "Peça atualizada.",
	"item-removido":    "Peça removida.",
	"foto-salva":       "Foto atualizada.",
	"proposta-enviada": "Proposta enviada.",
	"troca-aceita":     "Troca aceita. Combine a entrega e confirme quando receber a peça.",
	"troca-recusada":   "Proposta recusada.",
	"troca-cancelada":  "Troca cancelada.",
	"troca-confirmada": "Confirmação registrada.",
	"troca-finalizada": "Troca finalizada!",
	"senha-alterada":   "Senha alterada.",
	"usuario-salvo":    "Usuário atualizado.",
	"usuario-removido": "Usuário removido.",
}

// errorMessages are shown after a failed submission, keyed by ?erro=.
var errorMessages = map[string]string{
	"nao-encontrado":    "Registro não encontrado.",
	"nao-autorizado":    "Você não tem permissão para esta ação.",
	"estado-invalido":   "Esta ação não é possível no estado atual.",
	"item-indisponivel": "A peça não está disponível para troca.",
	"mesmo-dono":        "Você não pode trocar uma peça por outra sua.",
	"conflito":          "Detectamos uma inconsistência. A troca foi enviada para revisão.",
	"indisponivel":      "Serviço temporariamente indisponível. Tente novamente.",
	"dados-invalidos":   "Dados inválidos. Verifique o formulário.",
	"email-em-uso":      "Este e-mail já está cadastrado.",
	"foto-invalida":     "A foto deve ser JPEG ou PNG.",
	"erro":              "Ocorreu um erro inesperado.",
}

// errorCode maps a domain error to its ?erro= key.
func errorCode(err error) string {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return "nao-encontrado"
	case errors.Is(err, model.ErrUnauthorized):
		return "nao-autorizado"
	case errors.Is(err, model.ErrInvalidState):
		return "estado-invalido"
	case errors.Is(err, model.ErrItemUnavailable):
		return "item-indisponivel"
	case errors.Is(err, model.ErrSelfTrade):
		return "mesmo-dono"
	case errors.Is(err, model.ErrConflictDetected):
		return "conflito"
	case errors.Is(err, model.ErrStorageUnavailable):
		return "indisponivel"
	case errors.Is(err, model.ErrInvalidInput):
		return "dados-invalidos"
	case errors.Is(err, model.ErrEmailTaken):
		return "email-em-uso"
	default:
		return "erro"
	}
}

// errorText returns the user-facing message for err.
func errorText(err error) string {
	return errorMessages[errorCode(err)]
}

// redirectError sends the browser back to path with the message for err.
func redirectError(w http.ResponseWriter, r *http.Request, path string, err error) {
	code := errorCode(err)
	if code == "erro" || code == "indisponivel" {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	http.Redirect(w, r, path+"?erro="+url.QueryEscape(code), http.StatusSeeOther)
}

// redirectOK sends the browser to path with a success notice.
func redirectOK(w http.ResponseWriter, r *http.Request, path, notice string) {
	http.Redirect(w, r, fmt.Sprintf("%s?ok=%s", path, url.QueryEscape(notice)), http.StatusSeeOther)
}
