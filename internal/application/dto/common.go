package dto

// MaxPageLimit tope de elementos por página en listados.
const MaxPageLimit = 100

// PageRequest paginación ?limit=&offset= de los listados.
type PageRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// DefaultPage normaliza la página: limit por defecto 20 y como máximo MaxPageLimit, offset no negativo.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// Window límites [start, end) de la página sobre un listado de total elementos.
func (p PageRequest) Window(total int) (start, end int) {
	start = min(p.Offset, total)
	end = min(start+p.Limit, total)
	return start, end
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// ErrorResponse cuerpo de error HTTP. Code es estable (INSUFFICIENT_STOCK, LOCK_TIMEOUT...).
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
