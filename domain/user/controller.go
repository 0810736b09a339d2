package user

import (
	"github.com/akeren/go-rest-starter/config/router"
	"github.com/akeren/go-rest-starter/internal/log"
	"github.com/akeren/go-rest-starter/pkg/constants"
	"gorm.io/gorm"
)

func NewUserController(db *gorm.DB, logger *log.Logger) *router.RESTController {
	return newUserController(NewUserService(logger, NewUserRepository(db), nil))
}

func newUserController(service UserService) *router.RESTController {
	return router.NewVersionedRESTController(
		"UserController",
		"v1",
		"/users",
		func(rs *router.RouterService, c *router.RESTController) {
			rs.AddPostHandler(c, nil, "", createUserHandler(service), rs.RequireAuth(), rs.RequireRole(constants.RoleAdmin))
			rs.AddGetHandler(c, nil, "", listUsersHandler(service), rs.RequireAuth())
			rs.AddGetHandler(c, nil, "/me", currentUserHandler(service), rs.RequireAuth())
			rs.AddGetHandler(c, nil, "/:id", getUserHandler(service), rs.RequireAuth())
			rs.AddPatchHandler(c, nil, "/:id", updateUserHandler(service), rs.RequireAuth())
			rs.AddDeleteHandler(c, nil, "/:id", deleteUserHandler(service), rs.RequireAuth(), rs.RequireRole(constants.RoleAdmin))
		},
	)
}

func createUserHandler(service UserService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		var req CreateUserRequest
		if result := router.BindJSON(ctx, &req); result != nil {
			return result
		}

		response, err := service.CreateUser(ctx.Request.Context(), &req)
		if err != nil {
			return router.FromError(err)
		}

		return router.CreatedResult(response, "User")
	}
}

func listUsersHandler(service UserService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		limit, offset := router.ParsePagination(ctx)

		users, total, err := service.ListUsers(ctx.Request.Context(), limit, offset)
		if err != nil {
			return router.FromError(err)
		}

		return router.OKResult(router.Page[UserResponse]{
			Items:  users,
			Total:  total,
			Limit:  limit,
			Offset: offset,
		}, "Users retrieved successfully")
	}
}

func currentUserHandler(service UserService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		response, err := service.GetCurrentUser(ctx.Request.Context())
		if err != nil {
			return router.FromError(err)
		}

		return router.OKResult(response, "User retrieved successfully")
	}
}

func getUserHandler(service UserService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		id, errResult := router.ParseIDParam(ctx, "id")
		if errResult != nil {
			return errResult
		}

		response, err := service.GetUser(ctx.Request.Context(), id)
		if err != nil {
			return router.FromError(err)
		}

		return router.OKResult(response, "User retrieved successfully")
	}
}

func updateUserHandler(service UserService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		id, errResult := router.ParseIDParam(ctx, "id")
		if errResult != nil {
			return errResult
		}

		var req UpdateUserRequest
		if result := router.BindJSON(ctx, &req); result != nil {
			return result
		}

		response, err := service.UpdateUser(ctx.Request.Context(), id, &req)
		if err != nil {
			return router.FromError(err)
		}

		return router.OKResult(response, "User updated successfully")
	}
}

func deleteUserHandler(service UserService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		id, errResult := router.ParseIDParam(ctx, "id")
		if errResult != nil {
			return errResult
		}

		if err := service.DeleteUser(ctx.Request.Context(), id); err != nil {
			return router.FromError(err)
		}

		return router.DeletedResult("User")
	}
}
