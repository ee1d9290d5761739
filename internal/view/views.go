package view

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/student-portal/internal/models"
)

// Имена представлений, они же значения метки view в метриках.
const (
	NameProfile = "profile"
	NameGroups  = "groups"
)

// ProfileFetcher источник профиля с общим запросом для одновременных вызовов.
type ProfileFetcher interface {
	FetchOnce(ctx context.Context, force bool) (models.Identity, error)
}

// GroupLister источник групп пользователя.
type GroupLister interface {
	ListMine(ctx context.Context) ([]models.Group, error)
}

// ProfileView представление профиля. Refetch запрашивает профиль в обход кеша.
type ProfileView = View[models.Identity]

// GroupsView представление групп пользователя. Группы не кешируются.
type GroupsView = View[[]models.Group]

// NewProfileView создаёт представление профиля.
func NewProfileView(profile ProfileFetcher, nav Navigator, expirer SessionExpirer, log *slog.Logger) *ProfileView {
	return New[models.Identity](NameProfile, profile.FetchOnce, nav, expirer, log)
}

// NewGroupsView создаёт представление групп. Unmount не прерывает запрос к
// бэкенду: его результат отбрасывается, но 401 всё равно завершает сессию.
func NewGroupsView(groups GroupLister, nav Navigator, expirer SessionExpirer, log *slog.Logger) *GroupsView {
	return New[[]models.Group](NameGroups, func(ctx context.Context, _ bool) ([]models.Group, error) {
		return groups.ListMine(context.WithoutCancel(ctx))
	}, nav, expirer, log)
}
