// Package admin — handlers.go обрабатывает команды владельца.
// Команды доступны только субъектам из ADMIN_IDS и работают в любом состоянии диалога.
package admin

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"fair-bot/internal/dialog"
	"fair-bot/internal/features/flow"
	"fair-bot/internal/ledger"
)

// SubjectWiper стирает состояния диалога subject во всех чатах.
type SubjectWiper interface {
	DeleteSubject(ctx context.Context, subjectID int64) error
}

// Handler обрабатывает команды владельца.
type Handler struct {
	*flow.Deps
	service *Service
	states  SubjectWiper
}

// NewHandler создаёт обработчик команд владельца.
func NewHandler(deps *flow.Deps, service *Service, states SubjectWiper) *Handler {
	return &Handler{Deps: deps, service: service, states: states}
}

// Routes — маршруты владельца. Регистрируются первыми.
func (h *Handler) Routes() []dialog.Route {
	cmd := func(name string, handle dialog.Handler) dialog.Route {
		return dialog.Route{
			Name:      "admin_" + name,
			Shape:     dialog.ShapeCommand,
			Command:   name,
			OwnerOnly: true,
			Handle:    handle,
		}
	}
	return []dialog.Route{
		cmd("admin", h.help),
		cmd("reset", h.reset),
		cmd("add_location", h.addLocation),
		cmd("add_shop", h.addShop),
		cmd("set_manager_password", h.setPassword),
		cmd("reset_manager_password", h.resetPassword),
		cmd("locations", h.locations),
	}
}

func (h *Handler) help(_ context.Context, c *dialog.Call) error {
	c.Reply(h.Msg().OwnerHelp, nil)
	return nil
}

// reset стирает пользователя: чёрный список, очередь, станцию, саму запись
// и состояния диалога во всех чатах.
func (h *Handler) reset(ctx context.Context, c *dialog.Call) error {
	args, err := ParseResetArgs(c.Update.Args)
	if err != nil {
		c.Reply(h.Msg().ResetUsage, nil)
		return nil
	}
	subject := args.SubjectID
	if args.Self {
		subject = c.Update.SubjectID
	}

	wiped, err := h.Ledger.ResetSubject(ctx, subject)
	if err != nil {
		return err
	}
	if err := h.states.DeleteSubject(ctx, subject); err != nil {
		return fmt.Errorf("сброс состояний %d: %w", subject, err)
	}
	if subject == c.Update.SubjectID {
		// Иначе диспетчер сохранит текущее состояние поверх удалённого
		c.Clear()
	}

	log.WithFields(log.Fields{
		"owner":   c.Update.SubjectID,
		"subject": subject,
		"wiped":   wiped,
	}).Info("Сброс пользователя")

	if !wiped {
		c.Reply(fmt.Sprintf(h.Msg().ResetNothing, subject), nil)
		return nil
	}
	c.Reply(fmt.Sprintf(h.Msg().ResetDone, subject), nil)
	return nil
}

func (h *Handler) addLocation(ctx context.Context, c *dialog.Call) error {
	args, err := ParseLocationArgs(c.Update.Args)
	if err != nil {
		c.Reply(h.Msg().AddLocationUsage, nil)
		return nil
	}

	ok, err := h.Ledger.AddLocation(ctx, args.Name, args.MaxReward, args.Onetime)
	if err != nil {
		return err
	}
	if !ok {
		c.Reply(fmt.Sprintf(h.Msg().LocationAddFailed, args.Name), nil)
		return nil
	}

	log.WithFields(log.Fields{
		"name":       args.Name,
		"max_reward": args.MaxReward,
		"onetime":    args.Onetime,
	}).Info("Локация создана")
	c.Reply(fmt.Sprintf(h.Msg().LocationAdded, args.Name), nil)
	return nil
}

func (h *Handler) addShop(ctx context.Context, c *dialog.Call) error {
	args, err := ParseShopArgs(c.Update.Args)
	if err != nil {
		c.Reply(h.Msg().AddShopUsage, nil)
		return nil
	}

	ok, err := h.Ledger.AddShop(ctx, args.LocationID, args.Name)
	if err != nil {
		return err
	}
	if !ok {
		c.Reply(h.Msg().ShopAddFailed, nil)
		return nil
	}
	c.Reply(fmt.Sprintf(h.Msg().ShopAdded, args.Name, args.LocationID), nil)
	return nil
}

func (h *Handler) setPassword(_ context.Context, c *dialog.Call) error {
	password := strings.TrimSpace(c.Update.Args)
	if password == "" {
		c.Reply(h.Msg().SetPasswordUsage, nil)
		return nil
	}
	if err := h.service.SetPassword(password); err != nil {
		return err
	}
	c.Reply(h.Msg().ManagerPasswordSet, nil)
	return nil
}

func (h *Handler) resetPassword(_ context.Context, c *dialog.Call) error {
	h.service.ResetPassword()
	c.Reply(h.Msg().ManagerPasswordReset, nil)
	return nil
}

// locations — сводка по всем локациям с флагами.
func (h *Handler) locations(ctx context.Context, c *dialog.Call) error {
	var sb strings.Builder
	sb.WriteString(h.Msg().OwnerLocations)

	total := 0
	for offset := 0; ; offset += h.PageSize {
		locs, err := h.Ledger.ListLocations(ctx, offset, h.PageSize, false)
		if err != nil {
			return err
		}
		for _, l := range locs {
			sb.WriteString("\n")
			sb.WriteString(locationLine(l))
		}
		total += len(locs)
		if len(locs) < h.PageSize {
			break
		}
	}

	if total == 0 {
		c.Reply(h.Msg().OwnerLocationsEmpty, nil)
		return nil
	}
	c.Reply(sb.String(), nil)
	return nil
}

func locationLine(l ledger.Location) string {
	flags := make([]string, 0, 3)
	if l.IsActive {
		flags = append(flags, "активна")
	}
	if l.IsPaused {
		flags = append(flags, "пауза")
	}
	if l.IsOnetime {
		flags = append(flags, "одноразовая")
	}
	line := fmt.Sprintf("#%d %s · награда до %d · очередь %d", l.ID, l.Name, l.MaxReward, l.QueueLen)
	if len(flags) > 0 {
		line += " · " + strings.Join(flags, ", ")
	}
	return line
}
