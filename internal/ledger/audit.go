package ledger

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// appendAudit дописывает запись аудита ПОСЛЕ фиксации основной транзакции.
//
// Контракт: изменение баланса уже окончательно. Ошибка записи аудита только
// логируется и считается в метриках, пользователю не показывается и основную
// операцию не откатывает.
func (l *Ledger) appendAudit(ctx context.Context, kind string, write func(ctx context.Context, repo Repository) error) {
	// Отмена входящего запроса не должна обрывать запись аудита
	ctx = context.WithoutCancel(ctx)

	if err := write(ctx, l.store); err != nil {
		log.WithError(err).WithField("audit", kind).Warn("Не удалось записать аудит")
		if l.obs != nil {
			l.obs.AuditFailed(kind)
		}
	}
}
