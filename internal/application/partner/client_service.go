package partner

import (
	"context"

	"github.com/erp/invoicing/internal/domain/partner"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClientService handles client-related business operations
type ClientService struct {
	clientRepo partner.ClientRepository
	logger     *zap.Logger
}

// NewClientService creates a new ClientService
func NewClientService(clientRepo partner.ClientRepository, logger *zap.Logger) *ClientService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientService{
		clientRepo: clientRepo,
		logger:     logger,
	}
}

// Create creates a new client owned by the caller
func (s *ClientService) Create(ctx context.Context, actor shared.AuthContext, req CreateClientRequest) (*ClientResponse, error) {
	if err := actor.RequireUser(); err != nil {
		return nil, err
	}

	client, err := partner.NewClient(actor, req.CompanyName)
	if err != nil {
		return nil, err
	}
	if req.ContactName != "" || req.Email != "" || req.Phone != "" || req.Address != "" {
		if err := client.SetContact(req.ContactName, req.Email, req.Phone, req.Address); err != nil {
			return nil, err
		}
	}

	if err := s.clientRepo.Save(ctx, client); err != nil {
		return nil, err
	}

	s.logger.Info("client created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("client_id", client.ID.String()),
	)

	response := ToClientResponse(client)
	return &response, nil
}

// Get retrieves a client by ID
func (s *ClientService) Get(ctx context.Context, actor shared.AuthContext, id uuid.UUID) (*ClientResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	client, err := s.clientRepo.FindByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	response := ToClientResponse(client)
	return &response, nil
}

// List returns a page of clients and the total match count
func (s *ClientService) List(ctx context.Context, actor shared.AuthContext, filter ClientListFilter) ([]ClientResponse, int64, error) {
	if err := actor.Validate(); err != nil {
		return nil, 0, err
	}

	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	domainFilter.OrderBy = "company_name"
	domainFilter.OrderDir = "asc"
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = filter.Search

	clients, err := s.clientRepo.FindAll(ctx, actor, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.clientRepo.Count(ctx, actor, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToClientResponses(clients), total, nil
}
